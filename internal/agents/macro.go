package agents

import (
	"context"
	"fmt"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Macro regime thresholds
const (
	dxyWeakChange      = -2.0
	dxyStrongChange    = 2.0
	yieldCurveInverted = -0.5
	cpiHot             = 4.0
	cpiCool            = 2.0
	creditSpreadStress = 3.0
	vixMacroStress     = 30.0
)

// MacroAnalyst scores the macro-economic regime: central bank stance,
// dollar strength, yield curve, inflation, and credit conditions.
//
// Ladder: net signal >= +2 with confidence >= 60 buy, net signal <= -2
// sell, simultaneous curve inversion and credit stress avoid, otherwise
// hold.
type MacroAnalyst struct{}

// NewMacroAnalyst creates the macro specialist
func NewMacroAnalyst() *MacroAnalyst { return &MacroAnalyst{} }

func (a *MacroAnalyst) ID() string   { return AgentMacro }
func (a *MacroAnalyst) Name() string { return "Macro Analyst" }

// Analyze implements the Agent contract
func (a *MacroAnalyst) Analyze(_ context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	sc := newScorecard()
	m := snap.Macro

	switch m.FedStance {
	case "dovish":
		sc.bullish(10, 1, "Dovish central bank stance supports risk assets")
	case "hawkish":
		sc.bearish(10, 1, "Hawkish central bank stance is a headwind for risk assets")
	}

	if m.DXYChange < dxyWeakChange {
		sc.bullish(8, 1, fmt.Sprintf("Dollar weakening (DXY %+.1f%% 30d) supports the asset", m.DXYChange))
	} else if m.DXYChange > dxyStrongChange {
		sc.bearish(8, 1, fmt.Sprintf("Dollar strengthening (DXY %+.1f%% 30d) pressures the asset", m.DXYChange))
	}

	if m.YieldCurveSpread < yieldCurveInverted {
		sc.bearish(12, 1, fmt.Sprintf("Inverted yield curve (%.2fpp), recession warning", m.YieldCurveSpread))
	}

	if m.CPIYoY > cpiHot {
		sc.bearish(6, 1, fmt.Sprintf("Hot inflation at %.1f%% YoY", m.CPIYoY))
	} else if m.CPIYoY < cpiCool {
		sc.bullish(5, 0, fmt.Sprintf("Inflation contained at %.1f%% YoY", m.CPIYoY))
	}

	if m.CreditSpreads > creditSpreadStress {
		sc.bearish(10, 1, fmt.Sprintf("Credit spreads stressed at %.1fpp", m.CreditSpreads))
	}

	if m.VIX > vixMacroStress {
		sc.bearish(8, 1, fmt.Sprintf("Elevated cross-asset volatility, VIX %.1f", m.VIX))
	}

	rec := decision.Hold
	switch {
	case m.YieldCurveSpread < yieldCurveInverted && m.CreditSpreads > creditSpreadStress:
		rec = decision.Avoid
		sc.bearish(5, 0, "Curve inversion combined with credit stress, macro regime hostile")
	case sc.signal >= 2 && sc.final() >= 60:
		rec = decision.Buy
	case sc.signal <= -2:
		rec = decision.Sell
	}

	return sc.response(a.ID(), a.Name(), task, rec, map[string]interface{}{
		"fed_stance":         m.FedStance,
		"yield_curve_spread": m.YieldCurveSpread,
		"credit_spreads":     m.CreditSpreads,
		"vix":                m.VIX,
	})
}
