// Package store provides Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/warp/benefit-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[time.Time]generic.IndexEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[time.Time]generic.IndexEntry)}
}

// ListIndex returns a copy of all rows, oldest first.
func (m *Memory) ListIndex(_ context.Context) ([]generic.IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]generic.IndexEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	generic.SortIndexEntries(out)
	return out, nil
}

// SaveIndexEntry upserts by effective date.
func (m *Memory) SaveIndexEntry(_ context.Context, entry generic.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[entry.EffectiveFrom.Time]; ok && entry.ID == "" {
		entry.ID = existing.ID
	}
	m.entries[entry.EffectiveFrom.Time] = entry
	return nil
}

// DeleteIndexEntry removes the row for the date.
func (m *Memory) DeleteIndexEntry(_ context.Context, effectiveFrom generic.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[effectiveFrom.Time]; !ok {
		return generic.ErrIndexEntryNotFound
	}
	delete(m.entries, effectiveFrom.Time)
	return nil
}
