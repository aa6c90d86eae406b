// Package service implements the ledger and settlement services on top
// of a storage.Store and a notify.Notifier. Services are stateless:
// every dependency is injected and all state lives in the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/calculator"
	"github.com/mmynk/revledger/internal/metrics"
	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/storage"
)

// LedgerService creates ledger entries from payments and answers balance
// and pending-entry queries.
type LedgerService struct {
	store storage.Store
}

// NewLedgerService creates a new LedgerService with the given storage
// backend.
func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{store: store}
}

// CreateEntriesForPayment splits a payment according to the rule and
// persists one pending credit entry per emitted party, all in one batch.
func (s *LedgerService) CreateEntriesForPayment(ctx context.Context, payment models.Payment, rule *models.RevenueRule) ([]*models.LedgerEntry, error) {
	shares, err := calculator.CalculateSplit(payment.Amount, payment.Currency, rule)
	if err != nil {
		slog.Error("CreateEntriesForPayment: split failed",
			"payment_id", payment.ID, "error", err)
		return nil, err
	}

	date := payment.Date
	if date == 0 {
		date = time.Now().Unix()
	}

	// Iterate in fixed party order so entry creation is deterministic.
	var entries []*models.LedgerEntry
	for _, party := range models.AllParties {
		share, ok := shares[party]
		if !ok {
			continue
		}
		entries = append(entries, &models.LedgerEntry{
			PaymentID:     payment.ID,
			ProjectID:     payment.ProjectID,
			RevenueRuleID: rule.ID,
			Type:          models.EntryCredit,
			Party:         party,
			Amount:        share.Amount,
			Currency:      share.Currency,
			Date:          date,
			Status:        models.StatusPending,
		})
	}

	if err := s.store.CreateEntries(ctx, entries); err != nil {
		slog.Error("CreateEntriesForPayment: persist failed",
			"payment_id", payment.ID, "error", err)
		return nil, err
	}

	for _, entry := range entries {
		metrics.EntriesCreated.WithLabelValues(string(entry.Party)).Inc()
	}
	slog.Info("Ledger entries created",
		"payment_id", payment.ID, "rule_id", rule.ID, "entries", len(entries))

	return entries, nil
}

// RecordAdjustment writes a single manual credit or debit entry for a
// party, outside any revenue rule.
func (s *LedgerService) RecordAdjustment(ctx context.Context, party models.Party, entryType models.EntryType, amount decimal.Decimal, currency, projectID, remarks string) (*models.LedgerEntry, error) {
	if !party.Valid() {
		return nil, fmt.Errorf("unknown party: %q", party)
	}
	if !entryType.Valid() {
		return nil, fmt.Errorf("unknown entry type: %q", entryType)
	}
	if amount.Sign() <= 0 {
		return nil, calculator.ErrInvalidAmount
	}

	entry := &models.LedgerEntry{
		ProjectID: projectID,
		Type:      entryType,
		Party:     party,
		Amount:    amount.Round(2),
		Currency:  currency,
		Date:      time.Now().Unix(),
		Status:    models.StatusPending,
		Remarks:   remarks,
	}

	if err := s.store.CreateEntries(ctx, []*models.LedgerEntry{entry}); err != nil {
		slog.Error("RecordAdjustment failed", "party", party, "error", err)
		return nil, err
	}

	metrics.EntriesCreated.WithLabelValues(string(party)).Inc()
	return entry, nil
}

// GetPartyBalance aggregates a party's pending entries into a single
// balance. When pending entries span multiple currencies, the balance
// reports the currency with the largest absolute pending total. A store
// failure is recorded on the balance (zero amount) instead of returned,
// so callers aggregating all parties stay isolated from per-party
// failures.
func (s *LedgerService) GetPartyBalance(ctx context.Context, party models.Party) models.PartyBalance {
	balance := models.PartyBalance{
		Party:        party,
		TotalPending: decimal.Zero,
		LastUpdated:  time.Now().Unix(),
	}

	totals, err := s.store.PendingBalances(ctx, party)
	if err != nil {
		slog.Error("GetPartyBalance failed", "party", party, "error", err)
		balance.Err = err
		return balance
	}

	for _, total := range totals {
		if balance.Currency == "" || total.Total.Abs().GreaterThan(balance.TotalPending.Abs()) {
			balance.TotalPending = total.Total
			balance.Currency = total.Currency
		}
	}

	return balance
}

// GetAllPartyBalances returns a balance for every recognized party.
// Failures are isolated per party; the aggregate never fails as a whole.
func (s *LedgerService) GetAllPartyBalances(ctx context.Context) []models.PartyBalance {
	balances := make([]models.PartyBalance, 0, len(models.AllParties))
	for _, party := range models.AllParties {
		balances = append(balances, s.GetPartyBalance(ctx, party))
	}
	return balances
}

// GetPendingEntriesForSettlement returns all pending entries for a
// party, oldest first.
func (s *LedgerService) GetPendingEntriesForSettlement(ctx context.Context, party models.Party) ([]*models.LedgerEntry, error) {
	entries, err := s.store.ListPendingEntries(ctx, party)
	if err != nil {
		slog.Error("GetPendingEntriesForSettlement failed", "party", party, "error", err)
		return nil, err
	}
	return entries, nil
}

// GetLedgerEntry retrieves a single entry by ID.
func (s *LedgerService) GetLedgerEntry(ctx context.Context, id string) (*models.LedgerEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("GetLedgerEntry failed", "entry_id", id, "error", err)
		}
		return nil, err
	}
	return entry, nil
}
