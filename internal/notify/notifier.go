// Package notify defines the notification sink the settlement service
// talks to. Delivery is fire-and-forget from the engine's perspective:
// callers log failures and never let them alter a settlement's outcome.
package notify

import (
	"context"
	"log/slog"

	"github.com/mmynk/revledger/internal/models"
)

// Notifier is the outbound notification contract.
type Notifier interface {
	// NotifySettlementCompleted announces a committed settlement together
	// with the entries it cleared.
	NotifySettlementCompleted(ctx context.Context, settlement *models.Settlement, entries []*models.LedgerEntry, userID string) error

	// NotifySettlementReminder nudges a party whose pending balance
	// crossed the reminder threshold.
	NotifySettlementReminder(ctx context.Context, party models.Party, balance models.PartyBalance) error
}

// LogNotifier writes notifications to the structured log. It is the
// default sink when no webhook is configured and never fails.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) NotifySettlementCompleted(_ context.Context, settlement *models.Settlement, entries []*models.LedgerEntry, userID string) error {
	slog.Info("Settlement completed",
		"settlement_id", settlement.ID,
		"party", settlement.Party,
		"total", settlement.TotalAmount,
		"currency", settlement.Currency,
		"entries", len(entries),
		"user_id", userID,
	)
	return nil
}

func (LogNotifier) NotifySettlementReminder(_ context.Context, party models.Party, balance models.PartyBalance) error {
	slog.Info("Settlement reminder",
		"party", party,
		"pending", balance.TotalPending,
		"currency", balance.Currency,
	)
	return nil
}
