package memory

import (
	"context"
	"sync"

	"argos/internal/domain/decision"
)

// Compile-time checks
var (
	_ decision.Store       = (*DecisionStore)(nil)
	_ decision.TradeMemory = (*TradeMemory)(nil)
)

// DecisionStore is the in-memory decision history used in tests and
// single-process deployments. Append-only.
type DecisionStore struct {
	mu      sync.RWMutex
	records []*decision.Record
}

// NewDecisionStore creates an empty in-memory store
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{records: make([]*decision.Record, 0)}
}

// Append adds a record to the history
func (s *DecisionStore) Append(_ context.Context, rec *decision.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns the most recent records, newest first
func (s *DecisionStore) List(_ context.Context, limit int) ([]*decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*decision.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// CountByAsset returns the number of recorded decisions for an asset
func (s *DecisionStore) CountByAsset(_ context.Context, asset string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.records {
		if r.Asset == asset {
			count++
		}
	}
	return count, nil
}

// TradeMemory is the in-memory trade-memory sink with a static failure
// catalog, mirroring the postgres implementation's contract
type TradeMemory struct {
	mu      sync.RWMutex
	entries []*decision.MemoryEntry
}

// NewTradeMemory creates an empty in-memory trade memory
func NewTradeMemory() *TradeMemory {
	return &TradeMemory{entries: make([]*decision.MemoryEntry, 0)}
}

// Append records one trade-memory entry
func (m *TradeMemory) Append(_ context.Context, entry *decision.MemoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a snapshot of all recorded entries
func (m *TradeMemory) Entries() []*decision.MemoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*decision.MemoryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// SimilarFailures returns no matches; the in-memory store keeps no
// historical failure corpus
func (m *TradeMemory) SimilarFailures(_ context.Context, _ string, _ decision.AssetClass, _ int) ([]decision.FailureScenario, error) {
	return nil, nil
}
