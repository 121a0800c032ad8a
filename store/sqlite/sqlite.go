/*
Package sqlite provides a SQLite-backed implementation of generic.IndexStore.

PURPOSE:
  Persists the G-regulation index (grunnbeløp by effective date) so that a
  new G announced in May can be entered by an administrator without a
  release. Case data is never written here.

KEY TABLES:
  g_index: one row per effective date, amount as a decimal string

UPSERT:
  The effective date is unique. Saving a row for an existing date replaces
  its amount and keeps its id.

CONCURRENCY:
  Uses sync.RWMutex around the connection; SQLite allows a single writer.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers do not block
  the writer.

USAGE:
  store, err := sqlite.New("./benefit-engine.db")
  if err != nil {
      return err
  }
  defer store.Close()

  if _, err := store.SeedIndex(ctx, karens.DefaultEntries()); err != nil {
      return err
  }

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/benefit-engine/generic"
)

const isoDate = "2006-01-02"

// Store implements generic.IndexStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.IndexStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS g_index (
		id TEXT PRIMARY KEY,
		effective_from TEXT NOT NULL UNIQUE,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INDEX STORE IMPLEMENTATION
// =============================================================================

// ListIndex returns all rows ordered by effective date.
func (s *Store) ListIndex(ctx context.Context) ([]generic.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, effective_from, amount
		FROM g_index
		ORDER BY effective_from ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []generic.IndexEntry{}
	for rows.Next() {
		var e generic.IndexEntry
		var dateStr, amountStr string
		if err := rows.Scan(&e.ID, &dateStr, &amountStr); err != nil {
			return nil, err
		}
		t, err := time.Parse(isoDate, dateStr)
		if err != nil {
			return nil, fmt.Errorf("g_index row %s: %w", e.ID, err)
		}
		e.EffectiveFrom = generic.NewDate(t.Year(), t.Month(), t.Day())
		if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("g_index row %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveIndexEntry inserts or replaces the row for entry.EffectiveFrom.
func (s *Store) SaveIndexEntry(ctx context.Context, entry generic.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(ctx, s.db, entry)
}

func (s *Store) save(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, entry generic.IndexEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().Format(time.RFC3339)

	query := `
		INSERT INTO g_index (id, effective_from, amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(effective_from) DO UPDATE SET
			amount = excluded.amount,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		entry.ID,
		entry.EffectiveFrom.Time.Format(isoDate),
		entry.Amount.String(),
		now,
		now,
	)
	return err
}

// DeleteIndexEntry removes the row for the date.
func (s *Store) DeleteIndexEntry(ctx context.Context, effectiveFrom generic.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM g_index WHERE effective_from = ?",
		effectiveFrom.Time.Format(isoDate))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrIndexEntryNotFound, effectiveFrom)
	}
	return nil
}

// SeedIndex writes entries in one transaction when the table is empty and
// reports whether it did.
func (s *Store) SeedIndex(ctx context.Context, entries []generic.IndexEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM g_index").Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if err := s.save(ctx, tx, e); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("seed %s: %w", e.EffectiveFrom, err)
		}
	}
	return true, tx.Commit()
}

// Reset clears all rows (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM g_index")
	return err
}
