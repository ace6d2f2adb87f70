package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"argos/internal/domain/decision"
	"argos/internal/metrics"
	"argos/pkg/errors"
)

// recordQuery increments the query counter with a success or error status
func recordQuery(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueries.WithLabelValues("postgres", operation, status).Inc()
}

// Compile-time check
var _ decision.Store = (*DecisionRepository)(nil)

// DecisionRepository implements decision.Store using sqlx
type DecisionRepository struct {
	db *sqlx.DB
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sqlx.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Append inserts a decision record
func (r *DecisionRepository) Append(ctx context.Context, rec *decision.Record) error {
	query := `
		INSERT INTO decisions (
			id, goal, asset, asset_class, recommendation, confidence,
			proposed_size, approved, human_approval, vetoed_by, reasons, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Goal, rec.Asset, rec.AssetClass, rec.Recommendation, rec.Confidence,
		rec.ProposedSize, rec.Approved, rec.HumanApproval, rec.VetoedBy, pq.Array(rec.Reasons), rec.CreatedAt,
	)
	recordQuery("insert_decision", err)
	if err != nil {
		return errors.Wrap(err, "failed to insert decision record")
	}

	return nil
}

// List returns the most recent decision records, newest first
func (r *DecisionRepository) List(ctx context.Context, limit int) ([]*decision.Record, error) {
	type row struct {
		decision.Record
		Reasons pq.StringArray `db:"reasons"`
	}

	query := `
		SELECT id, goal, asset, asset_class, recommendation, confidence,
		       proposed_size, approved, human_approval, vetoed_by, reasons, created_at
		FROM decisions
		ORDER BY created_at DESC
		LIMIT $1`

	var rows []row
	err := r.db.SelectContext(ctx, &rows, query, limit)
	recordQuery("list_decisions", err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list decision records")
	}

	records := make([]*decision.Record, 0, len(rows))
	for i := range rows {
		rec := rows[i].Record
		rec.Reasons = []string(rows[i].Reasons)
		records = append(records, &rec)
	}

	return records, nil
}

// CountByAsset returns the number of recorded decisions for an asset
func (r *DecisionRepository) CountByAsset(ctx context.Context, asset string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM decisions WHERE asset = $1`, asset)
	recordQuery("count_decisions", err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count decisions")
	}
	return count, nil
}
