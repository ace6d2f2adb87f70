package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argos/internal/domain/decision"
)

func TestDecisionStore(t *testing.T) {
	ctx := context.Background()
	store := NewDecisionStore()

	first := &decision.Record{ID: uuid.New(), Asset: "BTC", Recommendation: decision.Hold}
	second := &decision.Record{ID: uuid.New(), Asset: "ETH", Recommendation: decision.Buy}
	third := &decision.Record{ID: uuid.New(), Asset: "BTC", Recommendation: decision.Avoid}
	for _, rec := range []*decision.Record{first, second, third} {
		require.NoError(t, store.Append(ctx, rec))
	}

	t.Run("list newest first", func(t *testing.T) {
		records, err := store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, third.ID, records[0].ID)
		assert.Equal(t, second.ID, records[1].ID)
	})

	t.Run("zero limit returns everything", func(t *testing.T) {
		records, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("count by asset", func(t *testing.T) {
		count, err := store.CountByAsset(ctx, "BTC")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = store.CountByAsset(ctx, "SOL")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestTradeMemory(t *testing.T) {
	ctx := context.Background()
	mem := NewTradeMemory()

	require.NoError(t, mem.Append(ctx, &decision.MemoryEntry{ID: uuid.New(), AgentID: "orchestrator", Asset: "BTC", Outcome: "hold"}))
	require.NoError(t, mem.Append(ctx, &decision.MemoryEntry{ID: uuid.New(), AgentID: "orchestrator", Asset: "ETH", Outcome: "buy"}))

	entries := mem.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "BTC", entries[0].Asset)

	scenarios, err := mem.SimilarFailures(ctx, "BTC", decision.ClassCrypto, 3)
	require.NoError(t, err)
	assert.Empty(t, scenarios, "the in-memory store keeps no failure corpus")
}
