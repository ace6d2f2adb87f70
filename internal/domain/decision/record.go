package decision

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is the final, auditable outcome of one orchestrated decision.
// Appended to the decision store, never removed.
type Record struct {
	ID             uuid.UUID       `db:"id"`
	Goal           string          `db:"goal"`
	Asset          string          `db:"asset"`
	AssetClass     AssetClass      `db:"asset_class"`
	Recommendation Recommendation  `db:"recommendation"`
	Confidence     float64         `db:"confidence"`
	ProposedSize   decimal.Decimal `db:"proposed_size"`
	Approved       bool            `db:"approved"`
	HumanApproval  bool            `db:"human_approval"`
	VetoedBy       string          `db:"vetoed_by"`
	Reasons        []string        `db:"-"`
	CreatedAt      time.Time       `db:"created_at"`
}

// MemoryEntry is one append-only trade-memory write produced after a
// decision. Downstream evaluation derives agent performance weights from
// these entries; this subsystem only writes them.
type MemoryEntry struct {
	ID        uuid.UUID `db:"id"`
	AgentID   string    `db:"agent_id"`
	SessionID string    `db:"session_id"`
	Asset     string    `db:"asset"`
	Content   string    `db:"content"`
	Outcome   string    `db:"outcome"`
	CreatedAt time.Time `db:"created_at"`
}

// FailureScenario is a historical failure case matched by similarity in the
// devil's advocate critique. Descriptive context only, never a score input.
type FailureScenario struct {
	Name        string
	Description string
	Similarity  float64
}
