// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/revledger/internal/models"
)

var (
	// ErrNotFound is returned when a referenced rule, entry or settlement
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent mutation invalidated an
	// assumption, e.g. an entry referenced by a settlement commit is no
	// longer pending. The whole operation is rolled back.
	ErrConflict = errors.New("conflicting concurrent update")
)

// EventKind discriminates ledger change events.
type EventKind string

const (
	EventEntriesCreated      EventKind = "entries_created"
	EventSettlementCommitted EventKind = "settlement_committed"
)

// LedgerEvent describes a committed change to the ledger, delivered to
// live subscribers after the durable write succeeds.
type LedgerEvent struct {
	Kind         EventKind
	Party        models.Party
	EntryIDs     []string
	SettlementID string
}

// Store defines the interface for ledger storage operations. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateRule persists a new revenue rule. The rule's ID and
	// timestamps are populated by the store.
	CreateRule(ctx context.Context, rule *models.RevenueRule) error

	// GetRule retrieves a rule by ID. Returns ErrNotFound if absent.
	GetRule(ctx context.Context, id string) (*models.RevenueRule, error)

	// ListRules returns all rules, optionally only active ones, newest
	// first.
	ListRules(ctx context.Context, activeOnly bool) ([]*models.RevenueRule, error)

	// GetDefaultRule returns the rule marked default, or ErrNotFound when
	// no default is configured.
	GetDefaultRule(ctx context.Context) (*models.RevenueRule, error)

	// SetDefaultRule marks the given rule default and clears the flag on
	// every other rule in the same transaction, so at most one default
	// exists at any time.
	SetDefaultRule(ctx context.Context, id string) error

	// CreateEntries persists a batch of ledger entries in one
	// transaction. IDs are populated by the store.
	CreateEntries(ctx context.Context, entries []*models.LedgerEntry) error

	// GetEntry retrieves an entry by ID. Returns ErrNotFound if absent.
	GetEntry(ctx context.Context, id string) (*models.LedgerEntry, error)

	// ListPendingEntries returns a party's pending entries ordered by
	// date, oldest first.
	ListPendingEntries(ctx context.Context, party models.Party) ([]*models.LedgerEntry, error)

	// PendingBalances returns per-currency signed sums over the party's
	// pending entries (credits positive, debits negative).
	PendingBalances(ctx context.Context, party models.Party) ([]models.CurrencyTotal, error)

	// CommitSettlement atomically writes the settlement record and
	// transitions every referenced entry from pending to cleared. If any
	// referenced entry is missing or no longer pending the transaction is
	// rolled back with ErrConflict; the caller never observes a partial
	// commit.
	CommitSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement retrieves a settlement by ID, including its entry
	// references and proof URLs. Returns ErrNotFound if absent.
	GetSettlement(ctx context.Context, id string) (*models.Settlement, error)

	// ListSettlements returns settlements newest first, optionally
	// filtered by party.
	ListSettlements(ctx context.Context, party *models.Party) ([]*models.Settlement, error)

	// AttachSettlementProof appends proof URLs to a settlement. This is
	// the only post-creation mutation a settlement permits, and it is
	// allowed exactly once: a second attach returns ErrConflict.
	AttachSettlementProof(ctx context.Context, id string, urls []string) (*models.Settlement, error)

	// SubscribeLedger registers a callback for ledger change events for
	// the given party (empty party subscribes to all). The callback fires
	// after the durable write. The returned function unsubscribes.
	SubscribeLedger(party models.Party, fn func(LedgerEvent)) (unsubscribe func())

	// Close releases any resources held by the store.
	Close() error
}
