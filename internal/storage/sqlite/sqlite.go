// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite. Monetary amounts are
// stored as integer minor units (cents), so SQL aggregation stays exact.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.Mutex
	nextSubID int
	subs      map[int]subscriber
}

type subscriber struct {
	party models.Party // empty subscribes to all parties
	fn    func(storage.LedgerEvent)
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		subs: make(map[int]subscriber),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SubscribeLedger registers a callback fired after every durable ledger
// change affecting the given party (all parties when party is empty).
func (s *SQLiteStore) SubscribeLedger(party models.Party, fn func(storage.LedgerEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = subscriber{party: party, fn: fn}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// publish delivers an event to matching subscribers. Callbacks run
// outside the store lock so a subscriber may unsubscribe from within its
// own callback.
func (s *SQLiteStore) publish(event storage.LedgerEvent) {
	s.mu.Lock()
	matched := make([]func(storage.LedgerEvent), 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.party == "" || sub.party == event.Party {
			matched = append(matched, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range matched {
		fn(event)
	}
}

// toMinor converts a decimal amount to integer minor units, rounding to
// the 2-decimal boundary precision.
func toMinor(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// fromMinor converts integer minor units back to a decimal amount.
func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
