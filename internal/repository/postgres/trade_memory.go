package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"argos/internal/adapters/embeddings"
	"argos/internal/domain/decision"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// Compile-time check
var _ decision.TradeMemory = (*TradeMemoryRepository)(nil)

// TradeMemoryRepository implements decision.TradeMemory using sqlx and
// pgvector. Entries are embedded on write; failure lookups run a cosine
// similarity search over the historical failure corpus.
type TradeMemoryRepository struct {
	db       *sqlx.DB
	embedder embeddings.Provider
	log      *logger.Logger
}

// NewTradeMemoryRepository creates a new trade memory repository
func NewTradeMemoryRepository(db *sqlx.DB, embedder embeddings.Provider) *TradeMemoryRepository {
	return &TradeMemoryRepository{
		db:       db,
		embedder: embedder,
		log:      logger.Get().With("component", "trade_memory"),
	}
}

// Append embeds and inserts one trade-memory entry
func (r *TradeMemoryRepository) Append(ctx context.Context, entry *decision.MemoryEntry) error {
	vec, err := r.embedder.GenerateEmbedding(ctx, entry.Content)
	if err != nil {
		return errors.Wrap(err, "failed to embed trade memory entry")
	}

	query := `
		INSERT INTO trade_memories (
			id, agent_id, session_id, asset, content, embedding,
			embedding_model, outcome, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.AgentID, entry.SessionID, entry.Asset, entry.Content,
		pgvector.NewVector(vec), r.embedder.Name(), entry.Outcome, entry.CreatedAt,
	)
	recordQuery("insert_trade_memory", err)
	if err != nil {
		return errors.Wrap(err, "failed to insert trade memory entry")
	}

	return nil
}

type failureRow struct {
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Similarity  float64 `db:"similarity"`
}

// SimilarFailures performs semantic search over the failure corpus using
// pgvector cosine similarity
func (r *TradeMemoryRepository) SimilarFailures(ctx context.Context, asset string, class decision.AssetClass, limit int) ([]decision.FailureScenario, error) {
	probe := fmt.Sprintf("%s %s trade failure", class, asset)
	vec, err := r.embedder.GenerateEmbedding(ctx, probe)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed failure probe")
	}

	query := `
		SELECT name, description, 1 - (embedding <=> $2) as similarity
		FROM failure_scenarios
		WHERE asset_class IN ($1, 'any')
		  AND embedding_model = $3
		ORDER BY embedding <=> $2
		LIMIT $4`

	var rows []failureRow
	err = r.db.SelectContext(ctx, &rows, query, class, pgvector.NewVector(vec), r.embedder.Name(), limit)
	recordQuery("search_failure_scenarios", err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search failure scenarios")
	}

	scenarios := make([]decision.FailureScenario, 0, len(rows))
	for _, row := range rows {
		scenarios = append(scenarios, decision.FailureScenario{
			Name:        row.Name,
			Description: row.Description,
			Similarity:  row.Similarity,
		})
	}

	return scenarios, nil
}
