package decision

import (
	"context"
)

// Store persists decision records. The orchestrator appends and never
// deletes; implementations are in-memory for tests and postgres for
// production.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit int) ([]*Record, error)
	CountByAsset(ctx context.Context, asset string) (int, error)
}

// TradeMemory receives append-only trade-memory writes and serves
// similarity lookups over historical failure scenarios.
type TradeMemory interface {
	Append(ctx context.Context, entry *MemoryEntry) error
	SimilarFailures(ctx context.Context, asset string, class AssetClass, limit int) ([]FailureScenario, error)
}

// WeightSource supplies per-agent consensus weights. The production
// implementation reads performance-derived weights computed by the
// evaluation collaborator; unknown agents weigh 1.0.
type WeightSource interface {
	Weight(ctx context.Context, agentID string) float64
}
