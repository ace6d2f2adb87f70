package agents

import (
	"context"
	"fmt"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Chart-structure thresholds
const (
	nearLevelPct     = 2.0
	sentimentGreedy  = 0.5
	sentimentFearful = -0.5
)

// TechnicalAnalyst is the generalist: chart structure, trend, volume
// confirmation, and the sentiment collaborator's score.
//
// Ladder: uptrend with confidence >= 65 buy, confirmed downtrend sell,
// otherwise hold.
type TechnicalAnalyst struct{}

// NewTechnicalAnalyst creates the generalist technical specialist
func NewTechnicalAnalyst() *TechnicalAnalyst { return &TechnicalAnalyst{} }

func (a *TechnicalAnalyst) ID() string   { return AgentTechnical }
func (a *TechnicalAnalyst) Name() string { return "Technical Analyst" }

// Analyze implements the Agent contract
func (a *TechnicalAnalyst) Analyze(_ context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	sc := newScorecard()
	t := snap.Technical

	switch t.Trend {
	case "up":
		sc.bullish(10, 1, "Price trend is up")
	case "down":
		sc.bearish(10, 1, "Price trend is down")
	default:
		sc.note("Sideways trend, no directional edge from structure")
	}

	if t.SupportDistancePct < nearLevelPct {
		sc.bullish(8, 1, fmt.Sprintf("Price %.1f%% above support, favorable entry zone", t.SupportDistancePct))
	}
	if t.ResistanceDistancePct < nearLevelPct {
		sc.bearish(8, 1, fmt.Sprintf("Price %.1f%% below resistance, limited upside", t.ResistanceDistancePct))
	}

	if t.VolumeConfirmation {
		sc.bullish(7, 0, "Volume confirms the move")
	} else {
		sc.bearish(4, 0, "No volume confirmation behind the move")
	}

	if snap.Sentiment.Sentiment > sentimentGreedy {
		sc.bullish(5, 0, fmt.Sprintf("Sentiment strongly positive (%.2f)", snap.Sentiment.Sentiment))
	} else if snap.Sentiment.Sentiment < sentimentFearful {
		sc.bearish(5, 0, fmt.Sprintf("Sentiment strongly negative (%.2f)", snap.Sentiment.Sentiment))
	}

	rec := decision.Hold
	switch {
	case t.Trend == "up" && sc.final() >= 65:
		rec = decision.Buy
	case t.Trend == "down" && t.VolumeConfirmation:
		rec = decision.Sell
	}

	return sc.response(a.ID(), a.Name(), task, rec, map[string]interface{}{
		"trend":               t.Trend,
		"support_distance":    t.SupportDistancePct,
		"resistance_distance": t.ResistanceDistancePct,
	})
}
