package decision

import (
	"time"

	"github.com/google/uuid"

	"argos/pkg/errors"
)

// TaskKind defines the kind of work a task requests
type TaskKind string

const (
	TaskAnalysis   TaskKind = "analysis"
	TaskValidation TaskKind = "validation"
	TaskCritique   TaskKind = "critique"
	TaskExecution  TaskKind = "execution"
)

// Valid checks if the task kind is known
func (k TaskKind) Valid() bool {
	switch k {
	case TaskAnalysis, TaskValidation, TaskCritique, TaskExecution:
		return true
	}
	return false
}

// AssetClass defines the market an asset trades in
type AssetClass string

const (
	ClassCrypto      AssetClass = "crypto"
	ClassStocks      AssetClass = "stocks"
	ClassCommodities AssetClass = "commodities"
	ClassForex       AssetClass = "forex"
)

// Valid checks if the asset class is known
func (c AssetClass) Valid() bool {
	switch c {
	case ClassCrypto, ClassStocks, ClassCommodities, ClassForex:
		return true
	}
	return false
}

// Recommendation is an agent's or the pipeline's trading stance
type Recommendation string

const (
	Buy   Recommendation = "buy"
	Sell  Recommendation = "sell"
	Hold  Recommendation = "hold"
	Avoid Recommendation = "avoid"
)

// Valid checks if the recommendation is known
func (r Recommendation) Valid() bool {
	switch r {
	case Buy, Sell, Hold, Avoid:
		return true
	}
	return false
}

// AgentTask is an immutable unit of work dispatched to agents.
// Created by the orchestrator during decomposition, read-only thereafter.
type AgentTask struct {
	ID         uuid.UUID
	Kind       TaskKind
	Asset      string
	AssetClass AssetClass
	Priority   int
	Deadline   time.Time
	Payload    map[string]interface{}
	CreatedAt  time.Time
}

// NewTask creates a validated task. Malformed inputs are rejected here so
// they never reach aggregation.
func NewTask(kind TaskKind, asset string, class AssetClass, priority int, deadline time.Time, payload map[string]interface{}) (*AgentTask, error) {
	if !kind.Valid() {
		return nil, errors.NewValidationError("kind", "unknown task kind", string(kind))
	}
	if asset == "" {
		return nil, errors.NewValidationError("asset", "asset is required", asset)
	}
	if !class.Valid() {
		return nil, errors.NewValidationError("asset_class", "unknown asset class", string(class))
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &AgentTask{
		ID:         uuid.New(),
		Kind:       kind,
		Asset:      asset,
		AssetClass: class,
		Priority:   priority,
		Deadline:   deadline,
		Payload:    payload,
		CreatedAt:  time.Now(),
	}, nil
}

// AgentResponse is the output of one agent for one task.
// Produced exactly once per agent per task; the only permitted mutation
// after creation is MarkStale.
type AgentResponse struct {
	AgentID        string
	AgentName      string
	TaskID         uuid.UUID
	Timestamp      time.Time
	IsStale        bool
	Confidence     float64
	Recommendation Recommendation
	Reasoning      []string
	Risks          []string
	Result         map[string]interface{}
}

// NewResponse creates a validated response.
func NewResponse(agentID, agentName string, taskID uuid.UUID, confidence float64, rec Recommendation, reasoning, risks []string, result map[string]interface{}) (*AgentResponse, error) {
	if agentID == "" {
		return nil, errors.NewValidationError("agent_id", "agent id is required", agentID)
	}
	if confidence < 0 || confidence > 100 {
		return nil, errors.NewValidationError("confidence", "must be in [0,100]", confidence)
	}
	if !rec.Valid() {
		return nil, errors.NewValidationError("recommendation", "unknown recommendation", string(rec))
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return &AgentResponse{
		AgentID:        agentID,
		AgentName:      agentName,
		TaskID:         taskID,
		Timestamp:      time.Now(),
		Confidence:     confidence,
		Recommendation: rec,
		Reasoning:      reasoning,
		Risks:          risks,
		Result:         result,
	}, nil
}

// MarkStale flags the response as stale. The staleness flag is the only
// field ever mutated after construction.
func (r *AgentResponse) MarkStale() {
	r.IsStale = true
}

// Age returns the response age relative to now
func (r *AgentResponse) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// Clamp bounds a score to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
