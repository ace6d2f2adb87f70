package agents

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Compliance thresholds
const (
	rugPullCritical = 0.7
	rugPullElevated = 0.4
	liquidityThin   = 1_000_000.0
	liquidityDeep   = 10_000_000.0
)

// RegulatoryAnalyst scores audit status, rug-pull model risk, sanctions
// exposure, and liquidity depth.
//
// Ladder: any critical flag (failed audit, critical rug-pull score,
// sanctions exposure) avoid, confidence >= 70 buy, confidence <= 35 avoid,
// otherwise hold.
type RegulatoryAnalyst struct{}

// NewRegulatoryAnalyst creates the compliance specialist
func NewRegulatoryAnalyst() *RegulatoryAnalyst { return &RegulatoryAnalyst{} }

func (a *RegulatoryAnalyst) ID() string   { return AgentRegulatory }
func (a *RegulatoryAnalyst) Name() string { return "Regulatory Analyst" }

// Analyze implements the Agent contract
func (a *RegulatoryAnalyst) Analyze(_ context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	sc := newScorecard()
	r := snap.Regulatory
	critical := false

	switch r.AuditStatus {
	case "audited":
		sc.bullish(10, 1, "Smart contract audited by a recognized firm")
	case "unaudited":
		sc.bearish(10, 1, "No audit on record")
	case "failed":
		sc.bearish(25, 2, "Critical: audit failed with unresolved findings")
		critical = true
	}

	if r.RugPullRisk > rugPullCritical {
		sc.bearish(30, 2, fmt.Sprintf("Critical rug-pull risk score %.2f", r.RugPullRisk))
		critical = true
	} else if r.RugPullRisk > rugPullElevated {
		sc.bearish(12, 1, fmt.Sprintf("Elevated rug-pull risk score %.2f", r.RugPullRisk))
	}

	if r.SanctionsExposure {
		sc.bearish(20, 2, "Critical: sanctions exposure detected")
		critical = true
	}

	if r.LiquidityUSD < liquidityThin {
		sc.bearish(15, 1, fmt.Sprintf("Thin liquidity: $%s", humanize.Comma(int64(r.LiquidityUSD))))
	} else if r.LiquidityUSD > liquidityDeep {
		sc.bullish(5, 0, fmt.Sprintf("Deep liquidity: $%s", humanize.Comma(int64(r.LiquidityUSD))))
	}

	if r.TeamVerified {
		sc.bullish(5, 0, "Team identity verified")
	}

	rec := decision.Hold
	switch {
	case critical:
		rec = decision.Avoid
	case sc.final() >= 70:
		rec = decision.Buy
	case sc.final() <= 35:
		rec = decision.Avoid
	}

	return sc.response(a.ID(), a.Name(), task, rec, map[string]interface{}{
		"audit_status":  r.AuditStatus,
		"rug_pull_risk": r.RugPullRisk,
		"liquidity_usd": r.LiquidityUSD,
	})
}
