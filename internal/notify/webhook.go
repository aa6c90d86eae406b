package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/models"
)

// WebhookNotifier posts notification payloads as JSON to a configured
// endpoint. The settlement service logs and swallows any error returned
// here; delivery is best-effort.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier posting to the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type settlementCompletedPayload struct {
	Event          string          `json:"event"`
	SettlementID   string          `json:"settlementId"`
	Party          models.Party    `json:"party"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Currency       string          `json:"currency"`
	LedgerEntryIDs []string        `json:"ledgerEntryIds"`
	UserID         string          `json:"userId"`
}

type reminderPayload struct {
	Event    string          `json:"event"`
	Party    models.Party    `json:"party"`
	Pending  decimal.Decimal `json:"pendingBalance"`
	Currency string          `json:"currency"`
}

func (n *WebhookNotifier) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}

func (n *WebhookNotifier) NotifySettlementCompleted(ctx context.Context, settlement *models.Settlement, entries []*models.LedgerEntry, userID string) error {
	return n.post(ctx, settlementCompletedPayload{
		Event:          "settlement.completed",
		SettlementID:   settlement.ID,
		Party:          settlement.Party,
		TotalAmount:    settlement.TotalAmount,
		Currency:       settlement.Currency,
		LedgerEntryIDs: settlement.LedgerEntryIDs,
		UserID:         userID,
	})
}

func (n *WebhookNotifier) NotifySettlementReminder(ctx context.Context, party models.Party, balance models.PartyBalance) error {
	return n.post(ctx, reminderPayload{
		Event:    "settlement.reminder",
		Party:    party,
		Pending:  balance.TotalPending,
		Currency: balance.Currency,
	})
}
