package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

func analysisTask(t *testing.T, asset string, class decision.AssetClass) *decision.AgentTask {
	t.Helper()
	task, err := decision.NewTask(decision.TaskAnalysis, asset, class, 1, time.Now().Add(time.Minute), nil)
	require.NoError(t, err)
	return task
}

func TestWorkerPool(t *testing.T) {
	pool := WorkerPool()
	require.Len(t, pool, 6)

	seen := make(map[string]bool)
	for _, a := range pool {
		assert.NotEmpty(t, a.ID())
		assert.NotEmpty(t, a.Name())
		assert.False(t, seen[a.ID()], "duplicate agent id %s", a.ID())
		seen[a.ID()] = true
	}
	assert.False(t, seen[AgentDevilsAdvocate], "critic must not be part of the worker pool")
}

func TestAgents_NeutralBaseline(t *testing.T) {
	task := analysisTask(t, "BTC", decision.ClassCrypto)
	snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)

	tests := []struct {
		agent      Agent
		wantRec    decision.Recommendation
		wantConf   float64
	}{
		{NewOnChainAnalyst(), decision.Hold, 50},
		{NewMacroAnalyst(), decision.Hold, 50},
		{NewVolatilityAnalyst(), decision.Hold, 50},
		{NewMomentumAnalyst(), decision.Hold, 56},
		{NewRegulatoryAnalyst(), decision.Buy, 70},
		{NewTechnicalAnalyst(), decision.Hold, 46},
	}

	for _, tt := range tests {
		t.Run(tt.agent.ID(), func(t *testing.T) {
			resp, err := tt.agent.Analyze(context.Background(), task, snap)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRec, resp.Recommendation)
			assert.InDelta(t, tt.wantConf, resp.Confidence, 0.001)
			assert.Equal(t, tt.agent.ID(), resp.AgentID)
			assert.Equal(t, task.ID, resp.TaskID)
		})
	}
}

func TestOnChainAnalyst(t *testing.T) {
	task := analysisTask(t, "ETH", decision.ClassCrypto)

	t.Run("accumulation triggers buy", func(t *testing.T) {
		snap := market.NeutralSnapshot("ETH", decision.ClassCrypto)
		snap.OnChain.WhaleNetFlow = 20_000
		snap.OnChain.ExchangeNetFlow = -5_000
		snap.OnChain.ActiveAddressChange = 25

		resp, err := NewOnChainAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Buy, resp.Recommendation)
		assert.InDelta(t, 80, resp.Confidence, 0.001)
	})

	t.Run("distribution triggers sell", func(t *testing.T) {
		snap := market.NeutralSnapshot("ETH", decision.ClassCrypto)
		snap.OnChain.WhaleNetFlow = -20_000
		snap.OnChain.ExchangeNetFlow = 60_000

		resp, err := NewOnChainAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Sell, resp.Recommendation)
		assert.InDelta(t, 35, resp.Confidence, 0.001)
	})

	t.Run("severe wash trading forces avoid", func(t *testing.T) {
		snap := market.NeutralSnapshot("ETH", decision.ClassCrypto)
		snap.OnChain.WashTradingRatio = 0.6

		resp, err := NewOnChainAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Avoid, resp.Recommendation)
		assert.NotEmpty(t, resp.Risks)
	})
}

func TestMacroAnalyst(t *testing.T) {
	task := analysisTask(t, "SPY", decision.ClassStocks)

	t.Run("dovish regime with weak dollar triggers buy", func(t *testing.T) {
		snap := market.NeutralSnapshot("SPY", decision.ClassStocks)
		snap.Macro.FedStance = "dovish"
		snap.Macro.DXYChange = -3
		snap.Macro.CPIYoY = 1.5

		resp, err := NewMacroAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Buy, resp.Recommendation)
		assert.InDelta(t, 73, resp.Confidence, 0.001)
	})

	t.Run("inversion with credit stress forces avoid", func(t *testing.T) {
		snap := market.NeutralSnapshot("SPY", decision.ClassStocks)
		snap.Macro.YieldCurveSpread = -1.0
		snap.Macro.CreditSpreads = 4.0

		resp, err := NewMacroAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Avoid, resp.Recommendation)
		assert.InDelta(t, 23, resp.Confidence, 0.001)
	})
}

func TestVolatilityAnalyst(t *testing.T) {
	task := analysisTask(t, "SPY", decision.ClassStocks)

	t.Run("calm regime with cheap vol triggers buy", func(t *testing.T) {
		snap := market.NeutralSnapshot("SPY", decision.ClassStocks)
		snap.Volatility.VIX = 12
		snap.Volatility.IVRank = 15

		resp, err := NewVolatilityAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Buy, resp.Recommendation)
		assert.InDelta(t, 66, resp.Confidence, 0.001)
	})

	t.Run("panic vix forces avoid", func(t *testing.T) {
		snap := market.NeutralSnapshot("SPY", decision.ClassStocks)
		snap.Volatility.VIX = 45

		resp, err := NewVolatilityAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Avoid, resp.Recommendation)
		assert.InDelta(t, 28, resp.Confidence, 0.001)
	})
}

func TestMomentumAnalyst(t *testing.T) {
	task := analysisTask(t, "BTC", decision.ClassCrypto)

	t.Run("aligned bullish stack triggers buy", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Momentum.EMAStackBullish = true
		snap.Momentum.MACDHistogram = 1.5
		snap.Momentum.RSI14 = 60
		snap.Momentum.ADX = 30

		resp, err := NewMomentumAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Buy, resp.Recommendation)
		assert.InDelta(t, 82, resp.Confidence, 0.001)
	})

	t.Run("aligned bearish stack triggers sell", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Momentum.EMAStackBearish = true
		snap.Momentum.MACDHistogram = -1.0
		snap.Momentum.RSI14 = 40

		resp, err := NewMomentumAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Sell, resp.Recommendation)
		assert.InDelta(t, 30, resp.Confidence, 0.001)
	})
}

func TestRegulatoryAnalyst(t *testing.T) {
	task := analysisTask(t, "SHITCOIN", decision.ClassCrypto)

	t.Run("sanctions exposure forces avoid", func(t *testing.T) {
		snap := market.NeutralSnapshot("SHITCOIN", decision.ClassCrypto)
		snap.Regulatory.SanctionsExposure = true

		resp, err := NewRegulatoryAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Avoid, resp.Recommendation)
	})

	t.Run("critical rug pull score forces avoid", func(t *testing.T) {
		snap := market.NeutralSnapshot("SHITCOIN", decision.ClassCrypto)
		snap.Regulatory.RugPullRisk = 0.8

		resp, err := NewRegulatoryAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Avoid, resp.Recommendation)
		assert.NotEmpty(t, resp.Risks)
	})
}

func TestTechnicalAnalyst(t *testing.T) {
	task := analysisTask(t, "BTC", decision.ClassCrypto)

	t.Run("uptrend near support triggers buy", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Technical.Trend = "up"
		snap.Technical.SupportDistancePct = 1.5
		snap.Technical.VolumeConfirmation = true
		snap.Sentiment.Sentiment = 0.6

		resp, err := NewTechnicalAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Buy, resp.Recommendation)
		assert.InDelta(t, 80, resp.Confidence, 0.001)
	})

	t.Run("confirmed downtrend triggers sell", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Technical.Trend = "down"
		snap.Technical.VolumeConfirmation = true

		resp, err := NewTechnicalAnalyst().Analyze(context.Background(), task, snap)
		require.NoError(t, err)
		assert.Equal(t, decision.Sell, resp.Recommendation)
		assert.InDelta(t, 47, resp.Confidence, 0.001)
	})
}

func TestAgents_ConfidenceAlwaysClamped(t *testing.T) {
	task := analysisTask(t, "DOOM", decision.ClassCrypto)

	// Every bearish condition at once
	snap := market.NeutralSnapshot("DOOM", decision.ClassCrypto)
	snap.OnChain.WhaleNetFlow = -100_000
	snap.OnChain.ExchangeNetFlow = 500_000
	snap.OnChain.WashTradingRatio = 0.9
	snap.Macro.FedStance = "hawkish"
	snap.Macro.DXYChange = 5
	snap.Macro.YieldCurveSpread = -2
	snap.Macro.CPIYoY = 9
	snap.Macro.CreditSpreads = 6
	snap.Macro.VIX = 55
	snap.Volatility.VIX = 55
	snap.Volatility.TermStructure = "backwardation"
	snap.Volatility.IVRank = 95
	snap.Volatility.VannaExposure = -1
	snap.Volatility.CharmDecay = -1
	snap.Momentum.RSI14 = 85
	snap.Momentum.MACDHistogram = -2
	snap.Momentum.EMAStackBearish = true
	snap.Momentum.PriceChange7d = 40
	snap.Regulatory.AuditStatus = "failed"
	snap.Regulatory.RugPullRisk = 0.95
	snap.Regulatory.SanctionsExposure = true
	snap.Regulatory.LiquidityUSD = 100_000
	snap.Regulatory.TeamVerified = false
	snap.Technical.Trend = "down"
	snap.Technical.ResistanceDistancePct = 0.5
	snap.Sentiment.Sentiment = -0.9

	for _, a := range WorkerPool() {
		resp, err := a.Analyze(context.Background(), task, snap)
		require.NoError(t, err, a.ID())
		assert.GreaterOrEqual(t, resp.Confidence, 0.0, a.ID())
		assert.LessOrEqual(t, resp.Confidence, 100.0, a.ID())
	}
}
