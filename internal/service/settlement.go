package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/metrics"
	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/notify"
	"github.com/mmynk/revledger/internal/storage"
)

// SettlementService commits settlement batches and answers settlement
// queries. It does not re-run the SettlementValidator: "can this be
// settled" and "settle it" are separate concerns, and the store's
// conflict check still rules out double settlement for callers that skip
// validation.
type SettlementService struct {
	store    storage.Store
	ledger   *LedgerService
	notifier notify.Notifier
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store storage.Store, ledger *LedgerService, notifier notify.Notifier) *SettlementService {
	return &SettlementService{store: store, ledger: ledger, notifier: notifier}
}

// Reminder records one party reminded by SendSettlementReminders.
type Reminder struct {
	Party    models.Party    `json:"party"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// CreateBulkSettlement commits a settlement batch: it resolves the
// referenced entries, computes the rounded signed net total, and writes
// the settlement record while clearing the entries in one atomic store
// transaction. A notification failure is logged and swallowed; the
// settlement's durability never depends on delivery.
func (s *SettlementService) CreateBulkSettlement(ctx context.Context, req SettlementRequest, userID string) (*models.Settlement, error) {
	party, err := models.ParseParty(req.Party)
	if err != nil {
		return nil, err
	}
	if len(req.LedgerEntryIDs) == 0 {
		return nil, fmt.Errorf("settlement references no entries")
	}

	// Resolve entries for the total and the notification payload. The
	// commit below re-checks pending status atomically, so a stale read
	// here can only lose the race, never corrupt the ledger.
	entries := make([]*models.LedgerEntry, 0, len(req.LedgerEntryIDs))
	total := decimal.Zero
	currency := ""
	for _, id := range req.LedgerEntryIDs {
		entry, err := s.store.GetEntry(ctx, id)
		if err != nil {
			slog.Error("CreateBulkSettlement: failed to resolve entry",
				"entry_id", id, "error", err)
			return nil, err
		}
		entries = append(entries, entry)
		total = total.Add(entry.SignedAmount())
		if currency == "" {
			currency = entry.Currency
		}
	}

	settlement := &models.Settlement{
		Party:          party,
		LedgerEntryIDs: req.LedgerEntryIDs,
		TotalAmount:    total.Round(2),
		Currency:       currency,
		SettlementDate: req.SettlementDate,
		Remarks:        req.Remarks,
		CreatedBy:      userID,
	}

	if err := s.store.CommitSettlement(ctx, settlement); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.SettlementConflicts.Inc()
		}
		slog.Error("CreateBulkSettlement: commit failed",
			"party", party, "entries", len(req.LedgerEntryIDs), "error", err)
		return nil, err
	}

	metrics.SettlementsCommitted.WithLabelValues(string(party)).Inc()
	amount, _ := settlement.TotalAmount.Abs().Float64()
	metrics.SettlementAmount.WithLabelValues(currency).Observe(amount)

	slog.Info("Settlement committed",
		"settlement_id", settlement.ID,
		"party", party,
		"total", settlement.TotalAmount,
		"currency", currency,
		"entries", len(entries),
	)

	if err := s.notifier.NotifySettlementCompleted(ctx, settlement, entries, userID); err != nil {
		metrics.NotificationFailures.Inc()
		slog.Error("Settlement notification failed (ignored)",
			"settlement_id", settlement.ID, "error", err)
	}

	return settlement, nil
}

// ProcessSettlementWithProof commits the settlement and, when proof URLs
// are supplied, appends them in one additional update, returning the
// enriched record.
func (s *SettlementService) ProcessSettlementWithProof(ctx context.Context, req SettlementRequest, proofURLs []string, userID string) (*models.Settlement, error) {
	settlement, err := s.CreateBulkSettlement(ctx, req, userID)
	if err != nil {
		return nil, err
	}
	if len(proofURLs) == 0 {
		return settlement, nil
	}

	enriched, err := s.store.AttachSettlementProof(ctx, settlement.ID, proofURLs)
	if err != nil {
		slog.Error("ProcessSettlementWithProof: proof attach failed",
			"settlement_id", settlement.ID, "error", err)
		return nil, err
	}
	return enriched, nil
}

// GetSettlementStats aggregates committed settlements, optionally
// filtered by party. "This month" covers settlements whose date falls on
// or after the start of the current calendar month.
func (s *SettlementService) GetSettlementStats(ctx context.Context, party *models.Party) (models.SettlementStats, error) {
	stats := models.SettlementStats{
		TotalAmount:     decimal.Zero,
		AverageAmount:   decimal.Zero,
		AmountThisMonth: decimal.Zero,
	}

	settlements, err := s.store.ListSettlements(ctx, party)
	if err != nil {
		slog.Error("GetSettlementStats failed", "error", err)
		return stats, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Unix()

	for _, settlement := range settlements {
		stats.TotalSettlements++
		stats.TotalAmount = stats.TotalAmount.Add(settlement.TotalAmount)
		if settlement.SettlementDate >= monthStart {
			stats.SettlementsThisMonth++
			stats.AmountThisMonth = stats.AmountThisMonth.Add(settlement.TotalAmount)
		}
	}

	stats.TotalAmount = stats.TotalAmount.Round(2)
	stats.AmountThisMonth = stats.AmountThisMonth.Round(2)
	if stats.TotalSettlements > 0 {
		stats.AverageAmount = stats.TotalAmount.
			Div(decimal.NewFromInt(int64(stats.TotalSettlements))).Round(2)
	}

	return stats, nil
}

// GetRecommendedSettlements groups a party's pending entries by
// (currency, project) in a single pass and returns the groups sorted by
// descending net total. Pure read, no mutation.
func (s *SettlementService) GetRecommendedSettlements(ctx context.Context, party models.Party) ([]models.RecommendedSettlement, error) {
	entries, err := s.store.ListPendingEntries(ctx, party)
	if err != nil {
		slog.Error("GetRecommendedSettlements failed", "party", party, "error", err)
		return nil, err
	}

	type groupKey struct {
		currency  string
		projectID string
	}
	groups := make(map[groupKey]*models.RecommendedSettlement)
	var order []groupKey
	for _, entry := range entries {
		key := groupKey{currency: entry.Currency, projectID: entry.ProjectID}
		group, ok := groups[key]
		if !ok {
			group = &models.RecommendedSettlement{
				Party:     party,
				Currency:  entry.Currency,
				ProjectID: entry.ProjectID,
				NetTotal:  decimal.Zero,
			}
			groups[key] = group
			order = append(order, key)
		}
		group.LedgerEntryIDs = append(group.LedgerEntryIDs, entry.ID)
		group.NetTotal = group.NetTotal.Add(entry.SignedAmount())
		group.EntryCount++
	}

	recommendations := make([]models.RecommendedSettlement, 0, len(order))
	for _, key := range order {
		group := groups[key]
		group.NetTotal = group.NetTotal.Round(2)
		recommendations = append(recommendations, *group)
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].NetTotal.GreaterThan(recommendations[j].NetTotal)
	})

	return recommendations, nil
}

// SendSettlementReminders sends one reminder to every party whose
// pending balance is at or above the threshold, and returns who was
// reminded. Per-party balance failures and notification failures are
// logged and skipped; they never abort the sweep.
func (s *SettlementService) SendSettlementReminders(ctx context.Context, threshold decimal.Decimal) ([]Reminder, error) {
	var reminders []Reminder
	for _, party := range models.AllParties {
		balance := s.ledger.GetPartyBalance(ctx, party)
		if balance.Err != nil {
			slog.Error("SendSettlementReminders: balance unavailable",
				"party", party, "error", balance.Err)
			continue
		}
		if balance.TotalPending.LessThan(threshold) {
			continue
		}

		if err := s.notifier.NotifySettlementReminder(ctx, party, balance); err != nil {
			metrics.NotificationFailures.Inc()
			slog.Error("Reminder notification failed (ignored)",
				"party", party, "error", err)
		}
		reminders = append(reminders, Reminder{
			Party:    party,
			Amount:   balance.TotalPending,
			Currency: balance.Currency,
		})
	}

	return reminders, nil
}
