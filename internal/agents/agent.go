package agents

import (
	"context"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Agent ids. Debate role assignment and consensus weighting key off these,
// so they are part of the wire contract.
const (
	AgentOnChain        = "onchain_analyst"
	AgentMacro          = "macro_analyst"
	AgentVolatility     = "volatility_analyst"
	AgentMomentum       = "momentum_analyst"
	AgentRegulatory     = "regulatory_analyst"
	AgentTechnical      = "technical_analyst"
	AgentDevilsAdvocate = "devils_advocate"
)

// baselineConfidence is every specialist's starting confidence before any
// condition triggers
const baselineConfidence = 50.0

// Agent is the capability contract every specialist implements. Analyze is
// total and side-effect-free: the same task and snapshot always produce the
// same response. Live data providers substitute behind the same contract.
type Agent interface {
	ID() string
	Name() string
	Analyze(ctx context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error)
}

// WorkerPool returns the closed set of worker specialists, in registration
// order. The devil's advocate is deliberately not part of the pool; it is
// wired separately wherever critique is required.
func WorkerPool() []Agent {
	return []Agent{
		NewOnChainAnalyst(),
		NewMacroAnalyst(),
		NewVolatilityAnalyst(),
		NewMomentumAnalyst(),
		NewRegulatoryAnalyst(),
		NewTechnicalAnalyst(),
	}
}

// scorecard accumulates additive confidence adjustments plus the
// human-readable reasoning or risk string each adjustment carries.
type scorecard struct {
	confidence float64
	signal     int // net directional pull, positive = bullish
	reasoning  []string
	risks      []string
}

func newScorecard() *scorecard {
	return &scorecard{confidence: baselineConfidence}
}

// bullish applies a positive-direction adjustment with a reasoning string
func (s *scorecard) bullish(delta float64, signal int, reason string) {
	s.confidence += delta
	s.signal += signal
	s.reasoning = append(s.reasoning, reason)
}

// bearish applies a negative-direction adjustment with a risk string
func (s *scorecard) bearish(delta float64, signal int, risk string) {
	s.confidence -= delta
	s.signal -= signal
	s.risks = append(s.risks, risk)
}

// note records a reasoning string without moving the score
func (s *scorecard) note(reason string) {
	s.reasoning = append(s.reasoning, reason)
}

// final returns the clamped confidence
func (s *scorecard) final() float64 {
	return decision.Clamp(s.confidence, 0, 100)
}

func (s *scorecard) response(agentID, agentName string, task *decision.AgentTask, rec decision.Recommendation, result map[string]interface{}) (*decision.AgentResponse, error) {
	return decision.NewResponse(agentID, agentName, task.ID, s.final(), rec, s.reasoning, s.risks, result)
}
