package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"argos/internal/adapters/config"
	"argos/internal/agents"
	"argos/internal/consensus"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/internal/metrics"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// Cross-asset validation thresholds: macro-regime gates a recommendation
// must clear before approval
const (
	vixStockBuyCeiling   = 30.0
	goldCorrelationBound = 0.8
	yieldCurveFloor      = -0.5
	creditSpreadCeiling  = 3.0
)

// SynthesisResult is the adversarial synthesis outcome
type SynthesisResult struct {
	Approved      bool
	CritiqueScore float64 // devil's-advocate-derived score, 0-10
	MeanBullish   float64
	Reasons       []string
}

// ValidationCheck is one cross-asset indicator check
type ValidationCheck struct {
	Name   string
	Passed bool
	Detail string
}

// ValidationResult is the cross-asset validation outcome; it passes only
// when every applicable check passes
type ValidationResult struct {
	Passed bool
	Checks []ValidationCheck
}

// RiskResult is the portfolio risk assessment for a proposed trade
type RiskResult struct {
	WithinLimits bool
	TradeRiskPct float64
	ExposurePct  float64
	Flags        []string
}

// Decision is the orchestrator's final output, pairing the auditable
// record with the consensus detail behind it
type Decision struct {
	Record     *decision.Record
	Consensus  *consensus.Result
	Synthesis  *SynthesisResult
	Validation *ValidationResult
	Risk       *RiskResult
}

// Orchestrator is the pipeline entry point: it decomposes a trading goal
// into tasks, collects fresh agent responses, runs adversarial synthesis
// and cross-asset validation, and produces the final gated decision.
// It is the single writer of the pending-task set and the decision history.
type Orchestrator struct {
	cfg       config.PipelineConfig
	pool      []agents.Agent
	advocate  *agents.DevilsAdvocate
	engine    *consensus.Engine
	snapshots market.SnapshotProvider
	store     decision.Store
	memory    decision.TradeMemory
	log       *logger.Logger

	mu        sync.Mutex
	pending   map[uuid.UUID]*decision.AgentTask
	responses map[uuid.UUID][]*decision.AgentResponse
}

// New creates an orchestrator. The store is required; trade memory is
// optional and skipped when nil.
func New(
	cfg config.PipelineConfig,
	pool []agents.Agent,
	advocate *agents.DevilsAdvocate,
	engine *consensus.Engine,
	snapshots market.SnapshotProvider,
	store decision.Store,
	memory decision.TradeMemory,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		pool:      pool,
		advocate:  advocate,
		engine:    engine,
		snapshots: snapshots,
		store:     store,
		memory:    memory,
		log:       log.With("component", "orchestrator"),
		pending:   make(map[uuid.UUID]*decision.AgentTask),
		responses: make(map[uuid.UUID][]*decision.AgentResponse),
	}
}

// DecomposeTask splits a trading goal into one task per analysis
// dimension plus a critique task and a validation task, each carrying the
// configured deadline. All tasks are stored pending.
func (o *Orchestrator) DecomposeTask(goal, asset string, class decision.AssetClass) ([]*decision.AgentTask, error) {
	dimensions := []string{"technical", "fundamental"}
	switch class {
	case decision.ClassCrypto:
		dimensions = append(dimensions, "onchain")
	case decision.ClassStocks:
		dimensions = append(dimensions, "earnings")
	}
	dimensions = append(dimensions, "macro", "sentiment", "volatility")

	deadline := time.Now().Add(o.cfg.TaskDeadline)
	tasks := make([]*decision.AgentTask, 0, len(dimensions)+2)

	for i, dim := range dimensions {
		task, err := decision.NewTask(decision.TaskAnalysis, asset, class, i+1, deadline, map[string]interface{}{
			"goal":      goal,
			"dimension": dim,
		})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	critique, err := decision.NewTask(decision.TaskCritique, asset, class, len(dimensions)+1, deadline, map[string]interface{}{"goal": goal})
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, critique)

	validation, err := decision.NewTask(decision.TaskValidation, asset, class, len(dimensions)+2, deadline, map[string]interface{}{"goal": goal})
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, validation)

	o.mu.Lock()
	for _, t := range tasks {
		o.pending[t.ID] = t
	}
	o.mu.Unlock()

	o.log.Infow("goal decomposed", "asset", asset, "tasks", len(tasks))
	return tasks, nil
}

// ReceiveAgentResponse accepts a response unless it is older than the
// staleness window, in which case the response is marked stale and
// rejected. Stale exclusion is silent by design; it is the pipeline's only
// robustness mechanism for misbehaving agents.
func (o *Orchestrator) ReceiveAgentResponse(resp *decision.AgentResponse) bool {
	if resp.Age(time.Now()) > o.cfg.StalenessWindow {
		resp.MarkStale()
		o.log.Warnw("stale response rejected", "agent", resp.AgentID, "task", resp.TaskID, "age", resp.Age(time.Now()))
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.pending[resp.TaskID]; !ok {
		o.log.Warnw("response for unknown task", "agent", resp.AgentID, "task", resp.TaskID)
		return false
	}
	o.responses[resp.TaskID] = append(o.responses[resp.TaskID], resp)
	return true
}

// completeTasks removes a run's tasks and their responses once the run
// finishes, so the pending set holds only in-flight work
func (o *Orchestrator) completeTasks(tasks []*decision.AgentTask) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range tasks {
		delete(o.pending, t.ID)
		delete(o.responses, t.ID)
	}
}

// PendingTask returns a pending task by id
func (o *Orchestrator) PendingTask(id uuid.UUID) (*decision.AgentTask, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.pending[id]
	return t, ok
}

// Responses returns the collected responses for a task
func (o *Orchestrator) Responses(taskID uuid.UUID) []*decision.AgentResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*decision.AgentResponse, len(o.responses[taskID]))
	copy(out, o.responses[taskID])
	return out
}

// PerformAdversarialSynthesis vetoes when the devil's-advocate-derived
// critique score exceeds the veto threshold, or when mean bullish
// confidence falls below the configured floor.
func (o *Orchestrator) PerformAdversarialSynthesis(bullish []*decision.AgentResponse, advocateResp *decision.AgentResponse) *SynthesisResult {
	res := &SynthesisResult{Approved: true}

	if advocateResp != nil {
		res.CritiqueScore = advocateResp.Confidence / 10
	}

	if len(bullish) > 0 {
		var sum float64
		for _, r := range bullish {
			sum += r.Confidence
		}
		res.MeanBullish = sum / float64(len(bullish))
	}

	if res.CritiqueScore > o.cfg.VetoThreshold {
		res.Approved = false
		res.Reasons = append(res.Reasons, fmt.Sprintf("devil's advocate critique score %.1f exceeds veto threshold %.1f", res.CritiqueScore, o.cfg.VetoThreshold))
		if advocateResp != nil {
			res.Reasons = append(res.Reasons, advocateResp.Risks...)
		}
	}

	// The floor only applies when a bullish thesis exists; an all-hold pool
	// is resolved by the confidence gate, not by veto
	if len(bullish) > 0 && res.MeanBullish < o.cfg.MinBullishConfidence {
		res.Approved = false
		res.Reasons = append(res.Reasons, fmt.Sprintf("mean bullish confidence %.1f below the %.0f floor", res.MeanBullish, o.cfg.MinBullishConfidence))
	}

	return res
}

// PerformCrossAssetValidation checks the recommendation against macro
// regime indicators for the asset class. It passes only if every
// applicable check passes.
func (o *Orchestrator) PerformCrossAssetValidation(snap *market.Snapshot, class decision.AssetClass, rec decision.Recommendation) *ValidationResult {
	res := &ValidationResult{Passed: true}

	add := func(name string, passed bool, detail string) {
		res.Checks = append(res.Checks, ValidationCheck{Name: name, Passed: passed, Detail: detail})
		if !passed {
			res.Passed = false
		}
	}

	if class == decision.ClassStocks && rec == decision.Buy {
		add("vix_regime", snap.Macro.VIX < vixStockBuyCeiling,
			fmt.Sprintf("VIX %.1f (must be < %.0f for stock buys)", snap.Macro.VIX, vixStockBuyCeiling))
	}

	if class == decision.ClassCrypto {
		corr := snap.Macro.GoldCorrelation
		if corr < 0 {
			corr = -corr
		}
		add("gold_usd_correlation", corr < goldCorrelationBound,
			fmt.Sprintf("|gold/USD correlation| %.2f (must be < %.1f)", corr, goldCorrelationBound))
	}

	add("yield_curve", snap.Macro.YieldCurveSpread > yieldCurveFloor,
		fmt.Sprintf("10y-2y spread %.2fpp (must be > %.1f)", snap.Macro.YieldCurveSpread, yieldCurveFloor))

	add("credit_spreads", snap.Macro.CreditSpreads < creditSpreadCeiling,
		fmt.Sprintf("credit spreads %.1fpp (must be < %.0f)", snap.Macro.CreditSpreads, creditSpreadCeiling))

	return res
}

// AssessRisk flags a trade exceeding the single-trade share of portfolio
// value, post-trade exposure beyond the total limit, and any pre-existing
// position in the same asset.
func (o *Orchestrator) AssessRisk(asset string, size decimal.Decimal, portfolio *market.PortfolioState) *RiskResult {
	res := &RiskResult{WithinLimits: true}
	if portfolio == nil || !portfolio.TotalValue.IsPositive() {
		res.WithinLimits = false
		res.Flags = append(res.Flags, "no portfolio snapshot available")
		return res
	}

	hundred := decimal.NewFromInt(100)
	tradePct := size.Div(portfolio.TotalValue).Mul(hundred)
	res.TradeRiskPct = tradePct.InexactFloat64()
	if tradePct.GreaterThan(decimal.NewFromFloat(o.cfg.MaxSingleTradeRiskPct)) {
		res.WithinLimits = false
		res.Flags = append(res.Flags, fmt.Sprintf("single-trade risk %.2f%% exceeds %.1f%% limit", res.TradeRiskPct, o.cfg.MaxSingleTradeRiskPct))
	}

	exposurePct := portfolio.TotalExposure.Add(size).Div(portfolio.TotalValue).Mul(hundred)
	res.ExposurePct = exposurePct.InexactFloat64()
	if exposurePct.GreaterThan(decimal.NewFromFloat(o.cfg.MaxTotalExposurePct)) {
		res.WithinLimits = false
		res.Flags = append(res.Flags, fmt.Sprintf("post-trade exposure %.2f%% exceeds %.1f%% limit", res.ExposurePct, o.cfg.MaxTotalExposurePct))
	}

	if portfolio.HasPosition(asset) {
		res.Flags = append(res.Flags, fmt.Sprintf("pre-existing position in %s", asset))
	}

	return res
}

// MakeDecision sequences the gates: adversarial veto forces avoid;
// cross-asset failure or a risk-limit breach forces hold; otherwise a
// confident consensus resolves by majority vote. Every decision is
// appended to the history, never removed.
func (o *Orchestrator) MakeDecision(
	ctx context.Context,
	goal, asset string,
	class decision.AssetClass,
	responses []*decision.AgentResponse,
	advocateResp *decision.AgentResponse,
	proposedSize decimal.Decimal,
	portfolio *market.PortfolioState,
	snap *market.Snapshot,
) (*Decision, error) {
	if len(responses) == 0 {
		return nil, errors.ErrNoResponses
	}

	bullish := make([]*decision.AgentResponse, 0)
	for _, r := range responses {
		if r.Recommendation == decision.Buy {
			bullish = append(bullish, r)
		}
	}

	all := responses
	if advocateResp != nil {
		all = append(append([]*decision.AgentResponse{}, responses...), advocateResp)
	}

	cons, err := o.engine.Calculate(ctx, uuid.NewString(), asset, class, all, proposedSize)
	if err != nil {
		return nil, err
	}

	synthesis := o.PerformAdversarialSynthesis(bullish, advocateResp)
	risk := o.AssessRisk(asset, proposedSize, portfolio)

	final := decision.Hold
	reasons := make([]string, 0, 4)
	vetoedBy := ""
	var validation *ValidationResult

	switch {
	case !synthesis.Approved:
		final = decision.Avoid
		vetoedBy = agents.AgentDevilsAdvocate
		reasons = append(reasons, "adversarial synthesis vetoed the trade")
		reasons = append(reasons, synthesis.Reasons...)

	default:
		candidate := o.majorityVote(responses)
		validation = o.PerformCrossAssetValidation(snap, class, candidate)

		switch {
		case !validation.Passed:
			final = decision.Hold
			reasons = append(reasons, "cross-asset validation failed")
			for _, c := range validation.Checks {
				if !c.Passed {
					reasons = append(reasons, c.Detail)
				}
			}
		case !risk.WithinLimits:
			final = decision.Hold
			metrics.RiskRejections.WithLabelValues("portfolio_limits").Inc()
			reasons = append(reasons, "portfolio risk limits breached")
			reasons = append(reasons, risk.Flags...)
		case cons.FinalDecision.Confidence >= o.cfg.ExecutionThreshold:
			final = candidate
			reasons = append(reasons, fmt.Sprintf("consensus confidence %.1f with majority %s", cons.FinalDecision.Confidence, candidate))
		default:
			final = decision.Hold
			reasons = append(reasons, fmt.Sprintf("consensus confidence %.1f below the %.0f execution threshold", cons.FinalDecision.Confidence, o.cfg.ExecutionThreshold))
		}
	}

	humanApproval := proposedSize.GreaterThan(decimal.NewFromFloat(o.cfg.HumanApprovalSize)) ||
		cons.FinalDecision.Confidence < o.cfg.HumanApprovalConfidence
	if humanApproval {
		reason := "confidence"
		if proposedSize.GreaterThan(decimal.NewFromFloat(o.cfg.HumanApprovalSize)) {
			reason = "size"
		}
		metrics.HumanApprovals.WithLabelValues(reason).Inc()
	}

	rec := &decision.Record{
		ID:             uuid.New(),
		Goal:           goal,
		Asset:          asset,
		AssetClass:     class,
		Recommendation: final,
		Confidence:     cons.FinalDecision.Confidence,
		ProposedSize:   proposedSize,
		Approved:       final == decision.Buy || final == decision.Sell,
		HumanApproval:  humanApproval,
		VetoedBy:       vetoedBy,
		Reasons:        reasons,
		CreatedAt:      time.Now(),
	}

	if err := o.store.Append(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "failed to append decision record")
	}

	if o.memory != nil {
		entry := &decision.MemoryEntry{
			ID:        uuid.New(),
			AgentID:   "orchestrator",
			SessionID: cons.SessionID,
			Asset:     asset,
			Content:   cons.Summary,
			Outcome:   string(final),
			CreatedAt: time.Now(),
		}
		if err := o.memory.Append(ctx, entry); err != nil {
			o.log.Warnw("trade memory write failed", "asset", asset, "error", err)
		}
	}

	o.log.Infow("decision made",
		"asset", asset,
		"recommendation", final,
		"confidence", cons.FinalDecision.Confidence,
		"human_approval", humanApproval,
		"vetoed_by", vetoedBy,
	)

	return &Decision{
		Record:     rec,
		Consensus:  cons,
		Synthesis:  synthesis,
		Validation: validation,
		Risk:       risk,
	}, nil
}

// majorityVote resolves the directional call by simple vote count across
// fresh responses; ties resolve in buy, sell, hold precedence order
func (o *Orchestrator) majorityVote(responses []*decision.AgentResponse) decision.Recommendation {
	counts := map[decision.Recommendation]int{}
	for _, r := range responses {
		if !r.IsStale {
			counts[r.Recommendation]++
		}
	}

	best := decision.Hold
	bestCount := 0
	for _, rec := range []decision.Recommendation{decision.Buy, decision.Sell, decision.Hold} {
		if counts[rec] > bestCount {
			bestCount = counts[rec]
			best = rec
		}
	}
	return best
}
