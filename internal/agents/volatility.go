package agents

import (
	"context"
	"fmt"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Volatility regime thresholds
const (
	vixCalm          = 15.0
	vixStressed      = 30.0
	vixPanic         = 40.0
	ivRankRich       = 80.0
	ivRankCheap      = 20.0
	vannaSupportive  = 0.5
	vannaSuppressive = -0.5
	charmPressure    = -0.5
	vommaConvex      = 0.5
)

// VolatilityAnalyst scores the implied-volatility regime and dealer Greeks
// flows (vanna, charm, vomma).
//
// Ladder: net signal >= +2 buy, net signal <= -2 sell, VIX above panic
// level avoid, otherwise hold.
type VolatilityAnalyst struct{}

// NewVolatilityAnalyst creates the volatility specialist
func NewVolatilityAnalyst() *VolatilityAnalyst { return &VolatilityAnalyst{} }

func (a *VolatilityAnalyst) ID() string   { return AgentVolatility }
func (a *VolatilityAnalyst) Name() string { return "Volatility Analyst" }

// Analyze implements the Agent contract
func (a *VolatilityAnalyst) Analyze(_ context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	sc := newScorecard()
	v := snap.Volatility

	if v.VIX < vixCalm {
		sc.bullish(10, 1, fmt.Sprintf("Calm volatility regime, VIX %.1f", v.VIX))
	} else if v.VIX > vixStressed {
		sc.bearish(12, 2, fmt.Sprintf("Volatility shock regime, VIX %.1f", v.VIX))
	}

	if v.TermStructure == "backwardation" {
		sc.bearish(10, 1, "Vol term structure in backwardation, near-term stress priced in")
	}

	if v.IVRank > ivRankRich {
		sc.bearish(8, 1, fmt.Sprintf("Implied vol rich at IV rank %.0f, crush risk on entries", v.IVRank))
	} else if v.IVRank < ivRankCheap {
		sc.bullish(6, 1, fmt.Sprintf("Implied vol cheap at IV rank %.0f", v.IVRank))
	}

	if v.VannaExposure > vannaSupportive {
		sc.bullish(7, 1, "Dealer vanna flows supportive into strength")
	} else if v.VannaExposure < vannaSuppressive {
		sc.bearish(7, 1, "Dealer vanna flows amplify downside moves")
	}

	if v.CharmDecay < charmPressure {
		sc.bearish(5, 0, "Charm decay adds systematic selling pressure into expiry")
	}

	if v.VommaConvexity > vommaConvex {
		sc.bullish(4, 0, "Positive vomma convexity cushions vol spikes")
	}

	rec := decision.Hold
	switch {
	case v.VIX > vixPanic:
		rec = decision.Avoid
		sc.bearish(10, 0, fmt.Sprintf("Panic volatility, VIX %.1f, position entry unsafe", v.VIX))
	case sc.signal >= 2:
		rec = decision.Buy
	case sc.signal <= -2:
		rec = decision.Sell
	}

	return sc.response(a.ID(), a.Name(), task, rec, map[string]interface{}{
		"vix":            v.VIX,
		"term_structure": v.TermStructure,
		"iv_rank":        v.IVRank,
	})
}
