package agents

import (
	"context"
	"fmt"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Whale-flow and wash-trading thresholds for the on-chain ladder
const (
	whaleAccumulationFlow = 10_000.0
	whaleDistributionFlow = -10_000.0
	exchangeInflowAlert   = 50_000.0
	washTradingElevated   = 0.3
	washTradingSevere     = 0.5
	addressGrowthStrong   = 20.0
)

// OnChainAnalyst scores whale accumulation, exchange flows, and
// wash-trading contamination.
//
// Ladder: net signal >= +3 buy, <= -3 sell, severe wash trading avoid,
// otherwise hold.
type OnChainAnalyst struct{}

// NewOnChainAnalyst creates the on-chain specialist
func NewOnChainAnalyst() *OnChainAnalyst { return &OnChainAnalyst{} }

func (a *OnChainAnalyst) ID() string   { return AgentOnChain }
func (a *OnChainAnalyst) Name() string { return "On-Chain Analyst" }

// Analyze implements the Agent contract
func (a *OnChainAnalyst) Analyze(_ context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	sc := newScorecard()
	oc := snap.OnChain

	if oc.WhaleNetFlow > whaleAccumulationFlow {
		sc.bullish(15, 2, fmt.Sprintf("Strong whale accumulation: net flow %+.0f units", oc.WhaleNetFlow))
	} else if oc.WhaleNetFlow < whaleDistributionFlow {
		sc.bearish(10, 2, fmt.Sprintf("Whale distribution under way: net flow %+.0f units", oc.WhaleNetFlow))
	}

	if oc.ExchangeNetFlow < 0 {
		sc.bullish(8, 1, "Coins moving off exchanges, supply tightening")
	} else if oc.ExchangeNetFlow > exchangeInflowAlert {
		sc.bearish(5, 1, fmt.Sprintf("Elevated exchange inflows (%.0f units), potential sell pressure", oc.ExchangeNetFlow))
	}

	if oc.WashTradingRatio > washTradingElevated {
		sc.bearish(15, 1, fmt.Sprintf("Elevated wash trading ratio %.2f, volume unreliable", oc.WashTradingRatio))
	}

	if oc.ActiveAddressChange > addressGrowthStrong {
		sc.bullish(7, 1, fmt.Sprintf("Active addresses up %.0f%% over 7d", oc.ActiveAddressChange))
	}

	rec := decision.Hold
	switch {
	case oc.WashTradingRatio > washTradingSevere:
		rec = decision.Avoid
		sc.bearish(10, 0, "Wash trading dominates volume, on-chain signal untrustworthy")
	case sc.signal >= 3:
		rec = decision.Buy
	case sc.signal <= -3:
		rec = decision.Sell
	}

	return sc.response(a.ID(), a.Name(), task, rec, map[string]interface{}{
		"whale_net_flow":     oc.WhaleNetFlow,
		"exchange_net_flow":  oc.ExchangeNetFlow,
		"wash_trading_ratio": oc.WashTradingRatio,
	})
}
