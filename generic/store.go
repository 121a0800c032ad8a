/*
store.go - Persistence interface for reference index tables

PURPOSE:
  Defines the interface between the engine and the database for the one
  thing the engine persists: the G-regulation index (grunnbeløp by
  effective date). Case data is never stored; every assessment is computed
  from the caseworker's pasted text.

KEY INTERFACES:
  IndexStore: list, upsert and delete index rows keyed by effective date

UPSERT CONTRACT:
  An effective date identifies a row. Saving a row for an existing date
  replaces its amount; a new G is announced each May and occasionally
  corrected afterwards.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  entries, err := store.ListIndex(ctx)
  table, err := karens.NewTable(entries)

SEE ALSO:
  - karens/gtable.go: Table built from these rows
  - api/handlers.go: G-table endpoints
*/
package generic

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INDEX ENTRY - One row of the base-amount table
// =============================================================================

// IndexEntry is the base amount in force from EffectiveFrom.
type IndexEntry struct {
	ID            string          `json:"id,omitempty"`
	EffectiveFrom Date            `json:"effective_from"`
	Amount        decimal.Decimal `json:"amount"`
}

// SortIndexEntries orders rows by EffectiveFrom, oldest first.
func SortIndexEntries(entries []IndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EffectiveFrom.Before(entries[j].EffectiveFrom)
	})
}

// =============================================================================
// INDEX STORE - Interface for index persistence
// =============================================================================

// IndexStore handles persistence of the G-regulation table.
type IndexStore interface {
	// ListIndex returns all rows ordered by EffectiveFrom ascending.
	ListIndex(ctx context.Context) ([]IndexEntry, error)

	// SaveIndexEntry inserts or replaces the row for entry.EffectiveFrom.
	SaveIndexEntry(ctx context.Context, entry IndexEntry) error

	// DeleteIndexEntry removes the row for the date.
	// Returns ErrIndexEntryNotFound if no such row exists.
	DeleteIndexEntry(ctx context.Context, effectiveFrom Date) error
}
