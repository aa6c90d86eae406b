package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/storage"
)

// CommitSettlement atomically writes the settlement record and clears
// every referenced ledger entry. Each status update is guarded by a
// rows-affected check on `status = pending`, so of two concurrent
// settlements referencing an overlapping entry exactly one commits; the
// other rolls back with ErrConflict and no partial state change.
func (s *SQLiteStore) CommitSettlement(ctx context.Context, settlement *models.Settlement) error {
	if len(settlement.LedgerEntryIDs) == 0 {
		return fmt.Errorf("settlement references no entries")
	}
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.SettlementDate == 0 {
		settlement.SettlementDate = settlement.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entryID := range settlement.LedgerEntryIDs {
		res, err := tx.ExecContext(ctx,
			"UPDATE ledger_entries SET status = ? WHERE id = ? AND status = ?",
			string(models.StatusCleared), entryID, string(models.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("failed to clear entry %s: %w", entryID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		}
		if affected != 1 {
			return fmt.Errorf("entry %s is missing or no longer pending: %w", entryID, storage.ErrConflict)
		}
	}

	var remarks any
	if settlement.Remarks != "" {
		remarks = settlement.Remarks
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlements
		 (id, party, total_amount_minor, currency, settlement_date, remarks, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, string(settlement.Party), toMinor(settlement.TotalAmount),
		settlement.Currency, settlement.SettlementDate, remarks,
		settlement.CreatedBy, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	for i, entryID := range settlement.LedgerEntryIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO settlement_entries (settlement_id, ledger_entry_id, position) VALUES (?, ?, ?)",
			settlement.ID, entryID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement entry reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publish(storage.LedgerEvent{
		Kind:         storage.EventSettlementCommitted,
		Party:        settlement.Party,
		EntryIDs:     settlement.LedgerEntryIDs,
		SettlementID: settlement.ID,
	})

	return nil
}

const settlementColumns = `id, party, total_amount_minor, currency, settlement_date, remarks, created_by, created_at`

func scanSettlement(row interface{ Scan(...any) error }) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var party string
	var remarks sql.NullString
	var minor int64

	err := row.Scan(&settlement.ID, &party, &minor, &settlement.Currency,
		&settlement.SettlementDate, &remarks, &settlement.CreatedBy, &settlement.CreatedAt)
	if err != nil {
		return nil, err
	}

	settlement.Party = models.Party(party)
	settlement.TotalAmount = fromMinor(minor)
	settlement.Remarks = remarks.String
	return settlement, nil
}

// loadSettlementRefs fills in the entry IDs and proof URLs for a scanned
// settlement row.
func (s *SQLiteStore) loadSettlementRefs(ctx context.Context, settlement *models.Settlement) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ledger_entry_id FROM settlement_entries WHERE settlement_id = ? ORDER BY position",
		settlement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get settlement entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID string
		if err := rows.Scan(&entryID); err != nil {
			return fmt.Errorf("failed to scan settlement entry: %w", err)
		}
		settlement.LedgerEntryIDs = append(settlement.LedgerEntryIDs, entryID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate settlement entries: %w", err)
	}

	proofRows, err := s.db.QueryContext(ctx,
		"SELECT url FROM settlement_proofs WHERE settlement_id = ? ORDER BY position",
		settlement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get settlement proofs: %w", err)
	}
	defer proofRows.Close()

	for proofRows.Next() {
		var url string
		if err := proofRows.Scan(&url); err != nil {
			return fmt.Errorf("failed to scan settlement proof: %w", err)
		}
		settlement.ProofURLs = append(settlement.ProofURLs, url)
	}
	if err := proofRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate settlement proofs: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID, including entry references
// and proof URLs.
func (s *SQLiteStore) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE id = ?", id)
	settlement, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	if err := s.loadSettlementRefs(ctx, settlement); err != nil {
		return nil, err
	}

	return settlement, nil
}

// ListSettlements returns settlements newest first, optionally filtered
// by party.
func (s *SQLiteStore) ListSettlements(ctx context.Context, party *models.Party) ([]*models.Settlement, error) {
	query := "SELECT " + settlementColumns + " FROM settlements"
	var args []any
	if party != nil {
		query += " WHERE party = ?"
		args = append(args, string(*party))
	}
	query += " ORDER BY settlement_date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	for _, settlement := range settlements {
		if err := s.loadSettlementRefs(ctx, settlement); err != nil {
			return nil, err
		}
	}

	return settlements, nil
}

// AttachSettlementProof appends proof URLs to a settlement. Settlements
// are immutable apart from this single additive update; attaching twice
// returns ErrConflict.
func (s *SQLiteStore) AttachSettlementProof(ctx context.Context, id string, urls []string) (*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM settlements WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check settlement existence: %w", err)
	}

	var proofCount int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM settlement_proofs WHERE settlement_id = ?", id,
	).Scan(&proofCount)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing proofs: %w", err)
	}
	if proofCount > 0 {
		return nil, fmt.Errorf("settlement %s already has proof attached: %w", id, storage.ErrConflict)
	}

	for i, url := range urls {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO settlement_proofs (settlement_id, position, url) VALUES (?, ?, ?)",
			id, i, url,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert settlement proof: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetSettlement(ctx, id)
}
