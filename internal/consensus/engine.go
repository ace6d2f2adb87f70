package consensus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"argos/internal/adapters/config"
	"argos/internal/domain/decision"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// marginForConsensus is the minimum margin of victory, in aggregate-score
// points, for consensus to be declared alongside the confidence threshold
const marginForConsensus = 10.0

// WeightedVote is one agent's recommendation after weighting
type WeightedVote struct {
	AgentID        string
	AgentName      string
	Recommendation decision.Recommendation
	Confidence     float64
	Weight         float64
}

// AggregateScores holds the weighted aggregate per recommendation
type AggregateScores struct {
	Buy   float64
	Sell  float64
	Hold  float64
	Avoid float64
}

// Score returns the aggregate for a recommendation
func (a AggregateScores) Score(rec decision.Recommendation) float64 {
	switch rec {
	case decision.Buy:
		return a.Buy
	case decision.Sell:
		return a.Sell
	case decision.Hold:
		return a.Hold
	default:
		return a.Avoid
	}
}

// FinalDecision is the consensus outcome
type FinalDecision struct {
	Recommendation   decision.Recommendation
	Confidence       float64
	ConsensusReached bool
	Unanimous        bool
	MarginOfVictory  float64
}

// RiskFactor is one scored risk string
type RiskFactor struct {
	Description string
	Severity    float64 // 0-10
}

// RiskAssessment is the aggregated risk view across all responses
type RiskAssessment struct {
	OverallRisk  float64 // 0-100
	Factors      []RiskFactor
	WithinLimits bool
}

// Result is the immutable output of one consensus calculation
type Result struct {
	SessionID      string
	Asset          string
	AssetClass     decision.AssetClass
	Votes          []WeightedVote
	Aggregates     AggregateScores
	FinalDecision  FinalDecision
	ExecutionPlan  *ExecutionPlan
	RiskAssessment RiskAssessment
	Summary        string
	CreatedAt      time.Time
}

// DefaultWeights is the static per-agent weight table. Performance-derived
// weights from the evaluation collaborator override these at runtime;
// unseen agent ids weigh 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"onchain_analyst":    1.1,
		"macro_analyst":      1.0,
		"volatility_analyst": 1.05,
		"momentum_analyst":   1.0,
		"regulatory_analyst": 1.2,
		"technical_analyst":  0.95,
		"devils_advocate":    1.3,
	}
}

// Engine converts any set of agent responses into a weighted consensus
// decision, a risk assessment, and, when the gates pass, an execution plan.
type Engine struct {
	cfg     config.PipelineConfig
	weights decision.WeightSource
	log     *logger.Logger
}

// staticWeights adapts the default table to the WeightSource contract
type staticWeights map[string]float64

func (w staticWeights) Weight(_ context.Context, agentID string) float64 {
	if v, ok := w[agentID]; ok {
		return v
	}
	return 1.0
}

// NewEngine creates a consensus engine. A nil weight source falls back to
// the static default table.
func NewEngine(cfg config.PipelineConfig, weights decision.WeightSource, log *logger.Logger) *Engine {
	if weights == nil {
		weights = staticWeights(DefaultWeights())
	}
	return &Engine{cfg: cfg, weights: weights, log: log}
}

// Calculate is a pure function from responses to a consensus result. Stale
// responses are excluded from every aggregate regardless of confidence.
func (e *Engine) Calculate(ctx context.Context, sessionID, asset string, class decision.AssetClass, responses []*decision.AgentResponse, proposedSize decimal.Decimal) (*Result, error) {
	fresh := make([]*decision.AgentResponse, 0, len(responses))
	for _, r := range responses {
		if r != nil && !r.IsStale {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return nil, errors.ErrNoResponses
	}

	votes := make([]WeightedVote, 0, len(fresh))
	var totalWeight, confSum float64
	weighted := map[decision.Recommendation]float64{}
	for _, r := range fresh {
		w := e.weights.Weight(ctx, r.AgentID)
		votes = append(votes, WeightedVote{
			AgentID:        r.AgentID,
			AgentName:      r.AgentName,
			Recommendation: r.Recommendation,
			Confidence:     r.Confidence,
			Weight:         w,
		})
		weighted[r.Recommendation] += r.Confidence * w
		totalWeight += w
		confSum += r.Confidence
	}

	agg := AggregateScores{
		Buy:   weighted[decision.Buy] / totalWeight,
		Sell:  weighted[decision.Sell] / totalWeight,
		Hold:  weighted[decision.Hold] / totalWeight,
		Avoid: weighted[decision.Avoid] / totalWeight,
	}

	winner, runnerUp := rank(agg)
	margin := agg.Score(winner) - agg.Score(runnerUp)
	meanConf := confSum / float64(len(fresh))
	confidence := decision.Clamp(meanConf*(1+margin/100), 0, 100)

	unanimous := true
	for _, v := range votes {
		if v.Recommendation != votes[0].Recommendation {
			unanimous = false
			break
		}
	}

	final := FinalDecision{
		Recommendation:   winner,
		Confidence:       confidence,
		MarginOfVictory:  margin,
		Unanimous:        unanimous,
		ConsensusReached: confidence >= e.cfg.ExecutionThreshold && margin > marginForConsensus,
	}

	risk := e.assessRisk(fresh)

	res := &Result{
		SessionID:      sessionID,
		Asset:          asset,
		AssetClass:     class,
		Votes:          votes,
		Aggregates:     agg,
		FinalDecision:  final,
		RiskAssessment: risk,
		Summary:        e.summarize(fresh, final),
		CreatedAt:      time.Now(),
	}

	// Execution plan only behind the full gate: actionable direction,
	// confidence at or above the execution threshold, and risk within limits
	if (winner == decision.Buy || winner == decision.Sell) &&
		confidence >= e.cfg.ExecutionThreshold &&
		risk.WithinLimits &&
		proposedSize.IsPositive() {
		res.ExecutionPlan = e.buildPlan(winner, confidence, proposedSize)
	}

	e.log.Debugw("consensus calculated",
		"session_id", sessionID,
		"asset", asset,
		"recommendation", winner,
		"confidence", confidence,
		"margin", margin,
		"consensus", final.ConsensusReached,
	)

	return res, nil
}

// rank returns the winning and runner-up recommendations by aggregate score
func rank(agg AggregateScores) (decision.Recommendation, decision.Recommendation) {
	recs := []decision.Recommendation{decision.Buy, decision.Sell, decision.Hold, decision.Avoid}
	sort.SliceStable(recs, func(i, j int) bool {
		return agg.Score(recs[i]) > agg.Score(recs[j])
	})
	return recs[0], recs[1]
}

// summarize builds the human-readable consensus summary: participant count,
// vote breakdown, and one line per agent.
func (e *Engine) summarize(responses []*decision.AgentResponse, final FinalDecision) string {
	breakdown := map[decision.Recommendation]int{}
	for _, r := range responses {
		breakdown[r.Recommendation]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Consensus across %d agents: %s at %.0f%% confidence.\n", len(responses), strings.ToUpper(string(final.Recommendation)), final.Confidence)
	fmt.Fprintf(&b, "Vote breakdown: %d buy, %d sell, %d hold, %d avoid.\n",
		breakdown[decision.Buy], breakdown[decision.Sell], breakdown[decision.Hold], breakdown[decision.Avoid])
	b.WriteString("Agent positions:\n")
	for _, r := range responses {
		fmt.Fprintf(&b, "- %s: %s (confidence %.0f%%)\n", r.AgentName, strings.ToUpper(string(r.Recommendation)), r.Confidence)
	}
	return b.String()
}
