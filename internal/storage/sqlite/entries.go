package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/storage"
)

// CreateEntries persists a batch of ledger entries in one transaction.
func (s *SQLiteStore) CreateEntries(ctx context.Context, entries []*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		if entry.Status == "" {
			entry.Status = models.StatusPending
		}

		var remarks any
		if entry.Remarks != "" {
			remarks = entry.Remarks
		}
		var paymentID any
		if entry.PaymentID != "" {
			paymentID = entry.PaymentID
		}
		var ruleID any
		if entry.RevenueRuleID != "" {
			ruleID = entry.RevenueRuleID
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_entries
			 (id, payment_id, project_id, revenue_rule_id, type, party, amount_minor, currency, date, status, remarks)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, paymentID, entry.ProjectID, ruleID,
			string(entry.Type), string(entry.Party),
			toMinor(entry.Amount), entry.Currency, entry.Date,
			string(entry.Status), remarks,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Group the event per party so party-scoped subscribers only see
	// their own entries.
	byParty := make(map[models.Party][]string)
	for _, entry := range entries {
		byParty[entry.Party] = append(byParty[entry.Party], entry.ID)
	}
	for party, ids := range byParty {
		s.publish(storage.LedgerEvent{
			Kind:     storage.EventEntriesCreated,
			Party:    party,
			EntryIDs: ids,
		})
	}

	return nil
}

const entryColumns = `id, payment_id, project_id, revenue_rule_id, type, party, amount_minor, currency, date, status, remarks`

func scanEntry(row interface{ Scan(...any) error }) (*models.LedgerEntry, error) {
	entry := &models.LedgerEntry{}
	var paymentID, ruleID, remarks sql.NullString
	var entryType, party, status string
	var minor int64

	err := row.Scan(&entry.ID, &paymentID, &entry.ProjectID, &ruleID,
		&entryType, &party, &minor, &entry.Currency, &entry.Date, &status, &remarks)
	if err != nil {
		return nil, err
	}

	entry.PaymentID = paymentID.String
	entry.RevenueRuleID = ruleID.String
	entry.Remarks = remarks.String
	entry.Type = models.EntryType(entryType)
	entry.Party = models.Party(party)
	entry.Status = models.EntryStatus(status)
	entry.Amount = fromMinor(minor)
	return entry, nil
}

// GetEntry retrieves a ledger entry by ID.
func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*models.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// ListPendingEntries returns a party's pending entries, oldest first.
func (s *SQLiteStore) ListPendingEntries(ctx context.Context, party models.Party) ([]*models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE party = ? AND status = ? ORDER BY date, id",
		string(party), string(models.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// PendingBalances returns per-currency signed sums over a party's pending
// entries. The sum runs in SQL over integer minor units, so concurrent
// writers always see a consistent snapshot.
func (s *SQLiteStore) PendingBalances(ctx context.Context, party models.Party) ([]models.CurrencyTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT currency,
		        SUM(CASE WHEN type = 'debit' THEN -amount_minor ELSE amount_minor END)
		 FROM ledger_entries
		 WHERE party = ? AND status = ?
		 GROUP BY currency
		 ORDER BY currency`,
		string(party), string(models.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pending balances: %w", err)
	}
	defer rows.Close()

	var totals []models.CurrencyTotal
	for rows.Next() {
		var currency string
		var minor int64
		if err := rows.Scan(&currency, &minor); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		totals = append(totals, models.CurrencyTotal{
			Currency: currency,
			Total:    fromMinor(minor),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	return totals, nil
}
