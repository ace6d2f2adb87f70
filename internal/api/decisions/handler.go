package decisions

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"argos/internal/debate"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/internal/events"
	"argos/internal/metrics"
	"argos/internal/orchestrator"
	"argos/internal/risk"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// Handler exposes the decision pipeline over HTTP
type Handler struct {
	orch        *orchestrator.Orchestrator
	coordinator *debate.Coordinator
	store       decision.Store
	publisher   *events.Publisher
	guardrail   risk.Validator
	log         *logger.Logger
}

// New creates a new decisions handler
func New(
	orch *orchestrator.Orchestrator,
	coordinator *debate.Coordinator,
	store decision.Store,
	publisher *events.Publisher,
	guardrail risk.Validator,
	log *logger.Logger,
) *Handler {
	return &Handler{
		orch:        orch,
		coordinator: coordinator,
		store:       store,
		publisher:   publisher,
		guardrail:   guardrail,
		log:         log.With("component", "decisions_api"),
	}
}

type decideRequest struct {
	Goal           string  `json:"goal"`
	Asset          string  `json:"asset"`
	AssetClass     string  `json:"asset_class"`
	ProposedSize   float64 `json:"proposed_size"`
	PortfolioValue float64 `json:"portfolio_value"`
	Cash           float64 `json:"cash"`
	TotalExposure  float64 `json:"total_exposure"`
}

// HandleDecide runs the full pipeline for one trading goal
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	class := decision.AssetClass(req.AssetClass)
	if !class.Valid() {
		writeError(w, http.StatusBadRequest, "unknown asset class")
		return
	}

	portfolio := &market.PortfolioState{
		TotalValue:    decimal.NewFromFloat(req.PortfolioValue),
		Cash:          decimal.NewFromFloat(req.Cash),
		TotalExposure: decimal.NewFromFloat(req.TotalExposure),
	}

	result, err := h.orch.Run(r.Context(), req.Goal, req.Asset, class, decimal.NewFromFloat(req.ProposedSize), portfolio)
	if err != nil {
		h.log.Errorw("pipeline run failed", "asset", req.Asset, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrNoResponses) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	rec := result.Record
	metrics.RecordDecision(string(rec.AssetClass), string(rec.Recommendation), rec.Approved, rec.Confidence)
	if rec.VetoedBy != "" {
		metrics.Vetoes.WithLabelValues(string(rec.AssetClass)).Inc()
	}

	// Approved trades clear the policy guardrail before the decision event
	// reaches the execution collaborator
	var guard *risk.Outcome
	if rec.Approved && h.guardrail != nil {
		guard, err = h.guardrail.ValidateTrade(r.Context(), &risk.CandidateTrade{
			Asset:          rec.Asset,
			AssetClass:     rec.AssetClass,
			Direction:      rec.Recommendation,
			Size:           rec.ProposedSize,
			Confidence:     rec.Confidence,
			PortfolioValue: portfolio.TotalValue,
		})
		if err != nil {
			h.log.Warnw("guardrail validation failed", "asset", rec.Asset, "error", err)
		}
	}

	if guard == nil || guard.Approved {
		h.publishDecision(r.Context(), rec)
	} else {
		h.log.Warnw("guardrail blocked decision publication", "asset", rec.Asset)
		h.publishRiskAlert(r.Context(), rec, guard)
	}

	writeJSON(w, http.StatusOK, decideResponse{Decision: result, Guardrail: guard})
}

type decideResponse struct {
	*orchestrator.Decision
	Guardrail *risk.Outcome `json:"guardrail,omitempty"`
}

type debateRequest struct {
	Goal       string `json:"goal"`
	Asset      string `json:"asset"`
	AssetClass string `json:"asset_class"`
}

// HandleDebate runs a structured debate session and returns its verdict
// and full blackboard
func (h *Handler) HandleDebate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req debateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	class := decision.AssetClass(req.AssetClass)
	if !class.Valid() {
		writeError(w, http.StatusBadRequest, "unknown asset class")
		return
	}

	task, err := decision.NewTask(decision.TaskAnalysis, req.Asset, class, 1, time.Now().Add(5*time.Minute), map[string]interface{}{
		"goal": req.Goal,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now()
	session, err := h.coordinator.Run(r.Context(), task)
	if err != nil {
		h.log.Errorw("debate run failed", "asset", req.Asset, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.RecordDebate(string(class), len(session.Rounds), time.Since(started))

	if v := session.FinalVerdict; v != nil && h.publisher != nil {
		event := &events.DebateVerdictEvent{
			SessionID:        session.ID.String(),
			Asset:            session.Asset,
			Recommendation:   string(v.Recommendation),
			Confidence:       v.Confidence,
			ConsensusReached: v.ConsensusReached,
			Unanimous:        v.Unanimous,
			Rounds:           len(session.Rounds),
			Timestamp:        time.Now().UTC(),
		}
		if err := h.publisher.PublishDebateVerdict(r.Context(), event); err != nil {
			h.log.Warnw("failed to publish debate verdict", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, session)
}

// HandleList returns recent decision records, newest first
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 20
	records, err := h.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) publishDecision(ctx context.Context, rec *decision.Record) {
	if h.publisher == nil {
		return
	}

	event := &events.DecisionMadeEvent{
		DecisionID:     rec.ID.String(),
		Goal:           rec.Goal,
		Asset:          rec.Asset,
		AssetClass:     string(rec.AssetClass),
		Recommendation: string(rec.Recommendation),
		Confidence:     rec.Confidence,
		ProposedSize:   rec.ProposedSize.String(),
		Approved:       rec.Approved,
		HumanApproval:  rec.HumanApproval,
		VetoedBy:       rec.VetoedBy,
		Reasons:        rec.Reasons,
		Timestamp:      time.Now().UTC(),
	}

	if err := h.publisher.PublishDecisionMade(ctx, event); err != nil {
		h.log.Warnw("failed to publish decision", "error", err)
	}
}

func (h *Handler) publishRiskAlert(ctx context.Context, rec *decision.Record, guard *risk.Outcome) {
	if h.publisher == nil {
		return
	}

	for _, c := range guard.Checks {
		if c.Passed {
			continue
		}
		event := &events.RiskAlertEvent{
			Asset:     rec.Asset,
			Reason:    c.Name,
			Detail:    c.Detail,
			Timestamp: time.Now().UTC(),
		}
		if err := h.publisher.PublishRiskAlert(ctx, event); err != nil {
			h.log.Warnw("failed to publish risk alert", "asset", rec.Asset, "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
