package agents

import (
	"context"
	"fmt"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Momentum ladder thresholds
const (
	rsiOverbought  = 70.0
	rsiOversold    = 30.0
	adxTrending    = 25.0
	extendedMove7d = 15.0
)

// MomentumAnalyst scores RSI, MACD, EMA stack alignment, and trend
// strength (ADX).
//
// Ladder: bullish EMA stack with positive MACD and confidence >= 65 buy,
// bearish stack with negative MACD sell, otherwise hold.
type MomentumAnalyst struct{}

// NewMomentumAnalyst creates the momentum specialist
func NewMomentumAnalyst() *MomentumAnalyst { return &MomentumAnalyst{} }

func (a *MomentumAnalyst) ID() string   { return AgentMomentum }
func (a *MomentumAnalyst) Name() string { return "Momentum Analyst" }

// Analyze implements the Agent contract
func (a *MomentumAnalyst) Analyze(_ context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	sc := newScorecard()
	m := snap.Momentum

	switch {
	case m.RSI14 > rsiOverbought:
		sc.bearish(8, 1, fmt.Sprintf("RSI overbought at %.0f", m.RSI14))
	case m.RSI14 < rsiOversold:
		sc.bullish(8, 1, fmt.Sprintf("RSI oversold at %.0f, rebound setup", m.RSI14))
	case m.RSI14 >= 50:
		sc.bullish(6, 1, fmt.Sprintf("RSI in healthy bullish range at %.0f", m.RSI14))
	}

	if m.MACDHistogram > 0 {
		sc.bullish(8, 1, fmt.Sprintf("MACD histogram positive at %.3f", m.MACDHistogram))
	} else if m.MACDHistogram < 0 {
		sc.bearish(8, 1, fmt.Sprintf("MACD histogram negative at %.3f", m.MACDHistogram))
	}

	if m.EMAStackBullish {
		sc.bullish(12, 2, "EMA stack fully bullish, fast above mid above slow")
	} else if m.EMAStackBearish {
		sc.bearish(12, 2, "EMA stack fully bearish, fast below mid below slow")
	}

	if m.ADX > adxTrending {
		sc.bullish(6, 0, fmt.Sprintf("ADX %.0f confirms a trending market", m.ADX))
	}

	if m.PriceChange7d > extendedMove7d {
		sc.bearish(5, 0, fmt.Sprintf("Move extended: %+.1f%% over 7d, pullback risk", m.PriceChange7d))
	}

	rec := decision.Hold
	switch {
	case m.EMAStackBullish && m.MACDHistogram > 0 && sc.final() >= 65:
		rec = decision.Buy
	case m.EMAStackBearish && m.MACDHistogram < 0:
		rec = decision.Sell
	}

	return sc.response(a.ID(), a.Name(), task, rec, map[string]interface{}{
		"rsi":            m.RSI14,
		"macd_histogram": m.MACDHistogram,
		"adx":            m.ADX,
	})
}
