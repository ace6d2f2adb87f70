package sentiment

import (
	"context"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/pkg/logger"
)

// Compile-time check
var _ market.SnapshotProvider = (*SnapshotEnricher)(nil)

// SnapshotEnricher overlays LLM-derived sentiment onto snapshots from an
// underlying provider. A failed sentiment lookup leaves the base snapshot
// untouched; sentiment is an enrichment, never a hard dependency.
type SnapshotEnricher struct {
	base      market.SnapshotProvider
	sentiment market.SentimentProvider
	log       *logger.Logger
}

// NewSnapshotEnricher wraps a snapshot provider with sentiment enrichment
func NewSnapshotEnricher(base market.SnapshotProvider, sentiment market.SentimentProvider, log *logger.Logger) *SnapshotEnricher {
	return &SnapshotEnricher{
		base:      base,
		sentiment: sentiment,
		log:       log.With("component", "snapshot_enricher"),
	}
}

// Snapshot implements market.SnapshotProvider
func (e *SnapshotEnricher) Snapshot(ctx context.Context, asset string, class decision.AssetClass) (*market.Snapshot, error) {
	snap, err := e.base.Snapshot(ctx, asset, class)
	if err != nil {
		return nil, err
	}

	score, err := e.sentiment.Sentiment(ctx, asset)
	if err != nil {
		e.log.Warnw("sentiment enrichment skipped", "asset", asset, "error", err)
		return snap, nil
	}

	snap.Sentiment = *score
	return snap, nil
}
