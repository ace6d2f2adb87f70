package debate

import (
	"time"

	"github.com/google/uuid"

	"argos/internal/domain/decision"
	"argos/pkg/errors"
)

// Phase identifies the debate phase an entry was posted in
type Phase string

const (
	PhaseScan    Phase = "scan"
	PhaseDebate  Phase = "debate"
	PhaseAudit   Phase = "audit"
	PhaseVerdict Phase = "verdict"
)

// EntryKind classifies a blackboard entry
type EntryKind string

const (
	KindFinding   EntryKind = "finding"
	KindArgument  EntryKind = "argument"
	KindCounter   EntryKind = "counter"
	KindVote      EntryKind = "vote"
	KindReference EntryKind = "reference"
)

// Role is a participant's assigned debate role, fixed at session start
type Role string

const (
	RoleBull    Role = "bull"
	RoleBear    Role = "bear"
	RoleNeutral Role = "neutral"
	RoleAuditor Role = "auditor"
)

// Status is the session state machine position. Transitions are strictly
// forward: scanning → debating → auditing → voting → complete.
type Status string

const (
	StatusScanning Status = "scanning"
	StatusDebating Status = "debating"
	StatusAuditing Status = "auditing"
	StatusVoting   Status = "voting"
	StatusComplete Status = "complete"
)

var statusOrder = map[Status]int{
	StatusScanning: 0,
	StatusDebating: 1,
	StatusAuditing: 2,
	StatusVoting:   3,
	StatusComplete: 4,
}

// Entry is an append-only fact posted to the blackboard. Never edited or
// deleted for the lifetime of a session.
type Entry struct {
	ID         uuid.UUID
	AgentID    string
	AgentName  string
	Timestamp  time.Time
	Phase      Phase
	Kind       EntryKind
	Content    string
	Confidence float64
	References []uuid.UUID
}

// NewEntry creates a validated blackboard entry
func NewEntry(agentID, agentName string, phase Phase, kind EntryKind, content string, confidence float64, refs []uuid.UUID) (*Entry, error) {
	if agentID == "" {
		return nil, errors.NewValidationError("agent_id", "agent id is required", agentID)
	}
	if confidence < 0 || confidence > 100 {
		return nil, errors.NewValidationError("confidence", "must be in [0,100]", confidence)
	}
	return &Entry{
		ID:         uuid.New(),
		AgentID:    agentID,
		AgentName:  agentName,
		Timestamp:  time.Now(),
		Phase:      phase,
		Kind:       kind,
		Content:    content,
		Confidence: confidence,
		References: refs,
	}, nil
}

// Participant is one role-assigned debate member
type Participant struct {
	AgentID   string
	AgentName string
	Role      Role
}

// Round records one completed debate round
type Round struct {
	Number   int
	EntryIDs []uuid.UUID
	Progress float64 // consensus-progress score after the round, 0-100
}

// Verdict is the session's final outcome, set exactly once after voting
type Verdict struct {
	Recommendation   decision.Recommendation
	Confidence       float64
	ConsensusReached bool
	Unanimous        bool
	Votes            map[string]Vote // by agent id
}

// Vote is one participant's weighted verdict vote
type Vote struct {
	AgentID        string
	Role           Role
	Recommendation decision.Recommendation
	Confidence     float64
	Weight         float64
}

// Session is the aggregate root for one debate. Mutated only by the debate
// coordinator; immutable once Status is complete.
type Session struct {
	ID           uuid.UUID
	Asset        string
	AssetClass   decision.AssetClass
	StartedAt    time.Time
	EndedAt      time.Time
	Status       Status
	Blackboard   []*Entry
	Rounds       []Round
	Participants []Participant
	FinalVerdict *Verdict
}

// NewSession creates a session in the scanning state
func NewSession(asset string, class decision.AssetClass, participants []Participant) (*Session, error) {
	if asset == "" {
		return nil, errors.NewValidationError("asset", "asset is required", asset)
	}
	if !class.Valid() {
		return nil, errors.NewValidationError("asset_class", "unknown asset class", string(class))
	}
	if len(participants) == 0 {
		return nil, errors.ErrNoParticipants
	}
	return &Session{
		ID:           uuid.New(),
		Asset:        asset,
		AssetClass:   class,
		StartedAt:    time.Now(),
		Status:       StatusScanning,
		Participants: participants,
	}, nil
}

// Advance moves the session to the next status. Backward or skipped
// transitions are rejected.
func (s *Session) Advance(next Status) error {
	if s.Status == StatusComplete {
		return errors.ErrSessionComplete
	}
	if statusOrder[next] != statusOrder[s.Status]+1 {
		return errors.Wrapf(errors.ErrPhaseOrder, "%s -> %s", s.Status, next)
	}
	s.Status = next
	if next == StatusComplete {
		s.EndedAt = time.Now()
	}
	return nil
}

// Append adds an entry to the blackboard
func (s *Session) Append(e *Entry) error {
	if s.Status == StatusComplete {
		return errors.ErrSessionComplete
	}
	s.Blackboard = append(s.Blackboard, e)
	return nil
}

// SetVerdict records the final verdict. Allowed exactly once, only while
// the session is in the voting state.
func (s *Session) SetVerdict(v *Verdict) error {
	if s.FinalVerdict != nil {
		return errors.Wrap(errors.ErrAlreadyExists, "verdict already set")
	}
	if s.Status != StatusVoting {
		return errors.Wrapf(errors.ErrPhaseOrder, "verdict in status %s", s.Status)
	}
	s.FinalVerdict = v
	return nil
}

// EntriesByPhase returns a snapshot of blackboard entries for a phase
func (s *Session) EntriesByPhase(phase Phase) []*Entry {
	out := make([]*Entry, 0)
	for _, e := range s.Blackboard {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}

// EntriesByAgent returns a snapshot of one agent's blackboard entries
func (s *Session) EntriesByAgent(agentID string) []*Entry {
	out := make([]*Entry, 0)
	for _, e := range s.Blackboard {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out
}

// LatestConfidence returns the confidence of the agent's most recent entry,
// or the fallback if the agent never posted.
func (s *Session) LatestConfidence(agentID string, fallback float64) float64 {
	for i := len(s.Blackboard) - 1; i >= 0; i-- {
		if s.Blackboard[i].AgentID == agentID {
			return s.Blackboard[i].Confidence
		}
	}
	return fallback
}

// RoleOf returns the participant's assigned role, neutral if unknown
func (s *Session) RoleOf(agentID string) Role {
	for _, p := range s.Participants {
		if p.AgentID == agentID {
			return p.Role
		}
	}
	return RoleNeutral
}
