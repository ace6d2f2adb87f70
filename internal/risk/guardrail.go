package risk

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"argos/internal/adapters/config"
	"argos/internal/domain/decision"
	"argos/internal/metrics"
	"argos/pkg/logger"
)

// CandidateTrade is a decided trade awaiting policy validation before
// physical execution
type CandidateTrade struct {
	Asset          string
	AssetClass     decision.AssetClass
	Direction      decision.Recommendation
	Size           decimal.Decimal
	Confidence     float64
	PortfolioValue decimal.Decimal
}

// Check is one named policy check with its outcome
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Outcome is the guardrail verdict: a boolean approval plus structured
// checks, and whether a human must sign off before execution
type Outcome struct {
	Approved     bool
	HITLRequired bool
	Checks       []Check
}

// Validator is the risk-policy guardrail every decision passes through
// before being handed to the execution collaborator
type Validator interface {
	ValidateTrade(ctx context.Context, trade *CandidateTrade) (*Outcome, error)
}

// PolicyValidator enforces the static risk policy from configuration
type PolicyValidator struct {
	cfg config.PipelineConfig
	log *logger.Logger
}

// NewPolicyValidator creates the default guardrail
func NewPolicyValidator(cfg config.PipelineConfig, log *logger.Logger) *PolicyValidator {
	return &PolicyValidator{cfg: cfg, log: log.With("component", "guardrail")}
}

// ValidateTrade implements Validator
func (v *PolicyValidator) ValidateTrade(_ context.Context, trade *CandidateTrade) (*Outcome, error) {
	out := &Outcome{Checks: make([]Check, 0, 4)}

	sizeOK := trade.Size.IsPositive()
	out.Checks = append(out.Checks, Check{
		Name:   "size_positive",
		Passed: sizeOK,
		Detail: fmt.Sprintf("size %s", trade.Size),
	})

	directionOK := trade.Direction == decision.Buy || trade.Direction == decision.Sell
	out.Checks = append(out.Checks, Check{
		Name:   "direction_actionable",
		Passed: directionOK,
		Detail: string(trade.Direction),
	})

	riskOK := true
	if trade.PortfolioValue.IsPositive() {
		riskPct := trade.Size.Div(trade.PortfolioValue).Mul(decimal.NewFromInt(100))
		riskOK = riskPct.LessThanOrEqual(decimal.NewFromFloat(v.cfg.MaxSingleTradeRiskPct))
		out.Checks = append(out.Checks, Check{
			Name:   "single_trade_risk",
			Passed: riskOK,
			Detail: fmt.Sprintf("%.2f%% of portfolio (limit %.1f%%)", riskPct.InexactFloat64(), v.cfg.MaxSingleTradeRiskPct),
		})
	}

	out.HITLRequired = trade.Size.GreaterThan(decimal.NewFromFloat(v.cfg.HumanApprovalSize)) ||
		trade.Confidence < v.cfg.HumanApprovalConfidence
	out.Approved = sizeOK && directionOK && riskOK

	if !out.Approved {
		for _, c := range out.Checks {
			if !c.Passed {
				metrics.RiskRejections.WithLabelValues(c.Name).Inc()
			}
		}
		v.log.Warnw("guardrail rejected trade", "asset", trade.Asset, "direction", trade.Direction, "size", trade.Size)
	}

	return out, nil
}
