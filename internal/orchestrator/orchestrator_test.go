package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argos/internal/adapters/config"
	"argos/internal/agents"
	"argos/internal/consensus"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	memstore "argos/internal/repository/memory"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// flatWeights removes weighting from consensus math in these tests
type flatWeights struct{}

func (flatWeights) Weight(_ context.Context, _ string) float64 { return 1.0 }

type fixture struct {
	orch   *Orchestrator
	store  *memstore.DecisionStore
	memory *memstore.TradeMemory
}

func newFixture(snapshots market.SnapshotProvider) *fixture {
	return newFixtureWithConfig(config.DefaultPipeline(), snapshots)
}

func newFixtureWithConfig(cfg config.PipelineConfig, snapshots market.SnapshotProvider) *fixture {
	store := memstore.NewDecisionStore()
	memory := memstore.NewTradeMemory()
	log := logger.Get()

	orch := New(
		cfg,
		agents.WorkerPool(),
		agents.NewDevilsAdvocate(cfg.VetoThreshold, nil),
		consensus.NewEngine(cfg, flatWeights{}, log),
		snapshots,
		store,
		memory,
		log,
	)
	return &fixture{orch: orch, store: store, memory: memory}
}

func mustResp(t *testing.T, agentID string, rec decision.Recommendation, conf float64, risks ...string) *decision.AgentResponse {
	t.Helper()
	resp, err := decision.NewResponse(agentID, agentID, uuid.New(), conf, rec, nil, risks, nil)
	require.NoError(t, err)
	return resp
}

func healthyPortfolio() *market.PortfolioState {
	return &market.PortfolioState{
		TotalValue: decimal.NewFromInt(1_000_000),
		Cash:       decimal.NewFromInt(500_000),
	}
}

func TestDecomposeTask(t *testing.T) {
	f := newFixture(&market.StaticProvider{})

	t.Run("crypto gains an onchain dimension", func(t *testing.T) {
		tasks, err := f.orch.DecomposeTask("accumulate", "BTC", decision.ClassCrypto)
		require.NoError(t, err)
		require.Len(t, tasks, 8)

		kinds := map[decision.TaskKind]int{}
		dims := map[string]bool{}
		for _, task := range tasks {
			kinds[task.Kind]++
			if d, ok := task.Payload["dimension"].(string); ok {
				dims[d] = true
			}
			assert.Equal(t, "accumulate", task.Payload["goal"])

			pending, ok := f.orch.PendingTask(task.ID)
			require.True(t, ok)
			assert.Equal(t, task, pending)
		}

		assert.Equal(t, 6, kinds[decision.TaskAnalysis])
		assert.Equal(t, 1, kinds[decision.TaskCritique])
		assert.Equal(t, 1, kinds[decision.TaskValidation])
		assert.True(t, dims["onchain"])
		assert.False(t, dims["earnings"])
	})

	t.Run("stocks gain an earnings dimension", func(t *testing.T) {
		tasks, err := f.orch.DecomposeTask("rotate", "AAPL", decision.ClassStocks)
		require.NoError(t, err)
		require.Len(t, tasks, 8)

		dims := map[string]bool{}
		for _, task := range tasks {
			if d, ok := task.Payload["dimension"].(string); ok {
				dims[d] = true
			}
		}
		assert.True(t, dims["earnings"])
		assert.False(t, dims["onchain"])
	})

	t.Run("other classes use the base dimensions", func(t *testing.T) {
		tasks, err := f.orch.DecomposeTask("hedge", "XAU", decision.ClassCommodities)
		require.NoError(t, err)
		assert.Len(t, tasks, 7)
	})
}

func TestReceiveAgentResponse(t *testing.T) {
	f := newFixture(&market.StaticProvider{})
	tasks, err := f.orch.DecomposeTask("test", "BTC", decision.ClassCrypto)
	require.NoError(t, err)
	task := tasks[0]

	t.Run("fresh response for a pending task", func(t *testing.T) {
		resp := mustResp(t, "onchain_analyst", decision.Buy, 80)
		resp.TaskID = task.ID

		assert.True(t, f.orch.ReceiveAgentResponse(resp))
		assert.Len(t, f.orch.Responses(task.ID), 1)
	})

	t.Run("response older than the staleness window", func(t *testing.T) {
		resp := mustResp(t, "macro_analyst", decision.Sell, 90)
		resp.TaskID = task.ID
		resp.Timestamp = time.Now().Add(-16 * time.Minute)

		assert.False(t, f.orch.ReceiveAgentResponse(resp))
		assert.True(t, resp.IsStale)
		assert.Len(t, f.orch.Responses(task.ID), 1, "stale responses are never stored")
	})

	t.Run("response for an unknown task", func(t *testing.T) {
		resp := mustResp(t, "macro_analyst", decision.Hold, 50)
		assert.False(t, f.orch.ReceiveAgentResponse(resp))
	})
}

func TestPerformAdversarialSynthesis(t *testing.T) {
	f := newFixture(&market.StaticProvider{})

	bullish := []*decision.AgentResponse{
		mustResp(t, "onchain_analyst", decision.Buy, 90),
		mustResp(t, "momentum_analyst", decision.Buy, 90),
		mustResp(t, "technical_analyst", decision.Buy, 90),
	}

	t.Run("approves a clean bullish pool", func(t *testing.T) {
		res := f.orch.PerformAdversarialSynthesis(bullish, mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30))
		assert.True(t, res.Approved)
		assert.InDelta(t, 3, res.CritiqueScore, 0.001)
		assert.InDelta(t, 90, res.MeanBullish, 0.001)
		assert.Empty(t, res.Reasons)
	})

	t.Run("critique above the veto threshold rejects", func(t *testing.T) {
		res := f.orch.PerformAdversarialSynthesis(bullish, mustResp(t, agents.AgentDevilsAdvocate, decision.Avoid, 80, "Critical: sanctions exposure"))
		assert.False(t, res.Approved)
		assert.InDelta(t, 8, res.CritiqueScore, 0.001)
		assert.Contains(t, res.Reasons, "Critical: sanctions exposure")
	})

	t.Run("weak bullish thesis rejects", func(t *testing.T) {
		weak := []*decision.AgentResponse{mustResp(t, "momentum_analyst", decision.Buy, 50)}
		res := f.orch.PerformAdversarialSynthesis(weak, mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30))
		assert.False(t, res.Approved)
		assert.InDelta(t, 50, res.MeanBullish, 0.001)
	})

	t.Run("all-hold pool is not a veto", func(t *testing.T) {
		res := f.orch.PerformAdversarialSynthesis(nil, mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30))
		assert.True(t, res.Approved)
		assert.Zero(t, res.MeanBullish)
	})

	t.Run("missing critic response", func(t *testing.T) {
		res := f.orch.PerformAdversarialSynthesis(bullish, nil)
		assert.True(t, res.Approved)
		assert.Zero(t, res.CritiqueScore)
	})
}

func TestPerformCrossAssetValidation(t *testing.T) {
	f := newFixture(&market.StaticProvider{})

	t.Run("neutral regime passes", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		res := f.orch.PerformCrossAssetValidation(snap, decision.ClassCrypto, decision.Buy)
		assert.True(t, res.Passed)
		assert.Len(t, res.Checks, 3)
	})

	t.Run("stock buys blocked in a high vix regime", func(t *testing.T) {
		snap := market.NeutralSnapshot("AAPL", decision.ClassStocks)
		snap.Macro.VIX = 35
		res := f.orch.PerformCrossAssetValidation(snap, decision.ClassStocks, decision.Buy)
		assert.False(t, res.Passed)

		// The vix gate only applies to stock buys
		res = f.orch.PerformCrossAssetValidation(snap, decision.ClassStocks, decision.Sell)
		assert.True(t, res.Passed)
	})

	t.Run("crypto blocked on extreme gold correlation", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Macro.GoldCorrelation = -0.9
		res := f.orch.PerformCrossAssetValidation(snap, decision.ClassCrypto, decision.Buy)
		assert.False(t, res.Passed)
	})

	t.Run("deep curve inversion blocks every class", func(t *testing.T) {
		snap := market.NeutralSnapshot("XAU", decision.ClassCommodities)
		snap.Macro.YieldCurveSpread = -1
		res := f.orch.PerformCrossAssetValidation(snap, decision.ClassCommodities, decision.Buy)
		assert.False(t, res.Passed)
	})

	t.Run("credit stress blocks every class", func(t *testing.T) {
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Macro.CreditSpreads = 4
		res := f.orch.PerformCrossAssetValidation(snap, decision.ClassCrypto, decision.Buy)
		assert.False(t, res.Passed)
	})
}

func TestAssessRisk(t *testing.T) {
	f := newFixture(&market.StaticProvider{})

	t.Run("within both limits", func(t *testing.T) {
		res := f.orch.AssessRisk("BTC", decimal.NewFromInt(15_000), healthyPortfolio())
		assert.True(t, res.WithinLimits)
		assert.InDelta(t, 1.5, res.TradeRiskPct, 0.001)
		assert.Empty(t, res.Flags)
	})

	t.Run("single trade limit breached", func(t *testing.T) {
		res := f.orch.AssessRisk("BTC", decimal.NewFromInt(25_000), healthyPortfolio())
		assert.False(t, res.WithinLimits)
		assert.InDelta(t, 2.5, res.TradeRiskPct, 0.001)
	})

	t.Run("post-trade exposure limit breached", func(t *testing.T) {
		portfolio := healthyPortfolio()
		portfolio.TotalExposure = decimal.NewFromInt(15_000)
		res := f.orch.AssessRisk("BTC", decimal.NewFromInt(15_000), portfolio)
		assert.False(t, res.WithinLimits)
		assert.InDelta(t, 3.0, res.ExposurePct, 0.001)
	})

	t.Run("pre-existing position is flagged but not blocking", func(t *testing.T) {
		portfolio := healthyPortfolio()
		portfolio.Positions = []market.Position{{Asset: "BTC", Size: decimal.NewFromInt(1), Value: decimal.NewFromInt(5_000)}}
		res := f.orch.AssessRisk("BTC", decimal.NewFromInt(10_000), portfolio)
		assert.True(t, res.WithinLimits)
		require.Len(t, res.Flags, 1)
		assert.Contains(t, res.Flags[0], "pre-existing position")
	})

	t.Run("missing portfolio snapshot blocks", func(t *testing.T) {
		res := f.orch.AssessRisk("BTC", decimal.NewFromInt(1_000), nil)
		assert.False(t, res.WithinLimits)
	})
}

func TestMakeDecision(t *testing.T) {
	ctx := context.Background()
	neutral := market.NeutralSnapshot("BTC", decision.ClassCrypto)

	strongBuys := func(t *testing.T) []*decision.AgentResponse {
		return []*decision.AgentResponse{
			mustResp(t, "onchain_analyst", decision.Buy, 90),
			mustResp(t, "momentum_analyst", decision.Buy, 90),
			mustResp(t, "technical_analyst", decision.Buy, 90),
		}
	}

	t.Run("veto forces avoid", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Avoid, 85, "Critical: sanctions exposure")

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, strongBuys(t), advocate, decimal.NewFromInt(10_000), healthyPortfolio(), neutral)
		require.NoError(t, err)

		assert.Equal(t, decision.Avoid, dec.Record.Recommendation)
		assert.Equal(t, agents.AgentDevilsAdvocate, dec.Record.VetoedBy)
		assert.False(t, dec.Record.Approved)
		assert.False(t, dec.Synthesis.Approved)
		assert.Contains(t, dec.Record.Reasons, "adversarial synthesis vetoed the trade")

		records, err := f.store.List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("validation failure forces hold", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
		snap.Macro.GoldCorrelation = 0.9
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30)

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, strongBuys(t), advocate, decimal.NewFromInt(10_000), healthyPortfolio(), snap)
		require.NoError(t, err)

		assert.Equal(t, decision.Hold, dec.Record.Recommendation)
		assert.Empty(t, dec.Record.VetoedBy)
		assert.Contains(t, dec.Record.Reasons, "cross-asset validation failed")
		require.NotNil(t, dec.Validation)
		assert.False(t, dec.Validation.Passed)
	})

	t.Run("risk breach forces hold", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30)

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, strongBuys(t), advocate, decimal.NewFromInt(30_000), healthyPortfolio(), neutral)
		require.NoError(t, err)

		assert.Equal(t, decision.Hold, dec.Record.Recommendation)
		assert.Contains(t, dec.Record.Reasons, "portfolio risk limits breached")
		assert.False(t, dec.Risk.WithinLimits)
	})

	t.Run("confident majority resolves directionally", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30)

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, strongBuys(t), advocate, decimal.NewFromInt(10_000), healthyPortfolio(), neutral)
		require.NoError(t, err)

		assert.Equal(t, decision.Buy, dec.Record.Recommendation)
		assert.True(t, dec.Record.Approved)
		assert.InDelta(t, 100, dec.Record.Confidence, 0.001)
		assert.False(t, dec.Record.HumanApproval, "small size at full confidence needs no sign-off")
		require.NotNil(t, dec.Consensus.ExecutionPlan)

		assert.Len(t, f.memory.Entries(), 1)
	})

	t.Run("low consensus confidence holds", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		responses := []*decision.AgentResponse{
			mustResp(t, "onchain_analyst", decision.Buy, 65),
			mustResp(t, "momentum_analyst", decision.Buy, 65),
			mustResp(t, "macro_analyst", decision.Sell, 60),
		}
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30)

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, responses, advocate, decimal.NewFromInt(10_000), healthyPortfolio(), neutral)
		require.NoError(t, err)

		assert.Equal(t, decision.Hold, dec.Record.Recommendation)
		assert.Less(t, dec.Record.Confidence, 85.0)
		assert.True(t, dec.Record.HumanApproval, "low confidence always escalates")
	})

	t.Run("execution threshold is configurable", func(t *testing.T) {
		cfg := config.DefaultPipeline()
		cfg.ExecutionThreshold = 50
		f := newFixtureWithConfig(cfg, &market.StaticProvider{})

		// Aggregate confidence lands near 64.6: under the default 85
		// window but over the configured one
		responses := []*decision.AgentResponse{
			mustResp(t, "onchain_analyst", decision.Buy, 65),
			mustResp(t, "momentum_analyst", decision.Buy, 65),
			mustResp(t, "macro_analyst", decision.Sell, 60),
		}
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30)

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, responses, advocate, decimal.NewFromInt(10_000), healthyPortfolio(), neutral)
		require.NoError(t, err)

		assert.Equal(t, decision.Buy, dec.Record.Recommendation)
		assert.True(t, dec.Record.Approved)
		assert.InDelta(t, 64.6, dec.Record.Confidence, 0.1)
	})

	t.Run("large size escalates to human approval", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		portfolio := healthyPortfolio()
		portfolio.TotalValue = decimal.NewFromInt(10_000_000)
		advocate := mustResp(t, agents.AgentDevilsAdvocate, decision.Hold, 30)

		dec, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, strongBuys(t), advocate, decimal.NewFromInt(60_000), portfolio, neutral)
		require.NoError(t, err)

		assert.Equal(t, decision.Buy, dec.Record.Recommendation)
		assert.True(t, dec.Record.HumanApproval)
	})

	t.Run("no responses", func(t *testing.T) {
		f := newFixture(&market.StaticProvider{})
		_, err := f.orch.MakeDecision(ctx, "accumulate", "BTC", decision.ClassCrypto, nil, nil, decimal.Zero, healthyPortfolio(), neutral)
		assert.True(t, errors.Is(err, errors.ErrNoResponses))
	})
}

func TestMajorityVote(t *testing.T) {
	f := newFixture(&market.StaticProvider{})

	stale := mustResp(t, "macro_analyst", decision.Sell, 90)
	stale.MarkStale()

	tests := []struct {
		name      string
		responses []*decision.AgentResponse
		want      decision.Recommendation
	}{
		{"clear majority", []*decision.AgentResponse{
			mustResp(t, "a", decision.Buy, 80),
			mustResp(t, "b", decision.Buy, 80),
			mustResp(t, "c", decision.Sell, 80),
		}, decision.Buy},
		{"tie resolves by precedence order", []*decision.AgentResponse{
			mustResp(t, "a", decision.Buy, 80),
			mustResp(t, "b", decision.Sell, 80),
		}, decision.Buy},
		{"stale votes excluded", []*decision.AgentResponse{
			mustResp(t, "a", decision.Buy, 60),
			stale,
		}, decision.Buy},
		{"empty holds", nil, decision.Hold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.orch.majorityVote(tt.responses))
		})
	}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(&market.StaticProvider{})

	dec, err := f.orch.Run(context.Background(), "accumulate BTC", "BTC", decision.ClassCrypto, decimal.NewFromInt(10_000), healthyPortfolio())
	require.NoError(t, err)

	// On neutral data only the regulatory analyst turns bullish; the pool
	// majority holds and confidence stays below the execution window
	assert.Equal(t, decision.Hold, dec.Record.Recommendation)
	assert.True(t, dec.Synthesis.Approved)
	assert.True(t, dec.Risk.WithinLimits)
	assert.True(t, dec.Record.HumanApproval)
	assert.Nil(t, dec.Consensus.ExecutionPlan)

	records, err := f.store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "accumulate BTC", records[0].Goal)

	count, err := f.store.CountByAsset(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A completed run leaves nothing behind in the task tracking maps
	f.orch.mu.Lock()
	assert.Empty(t, f.orch.pending)
	assert.Empty(t, f.orch.responses)
	f.orch.mu.Unlock()
}
