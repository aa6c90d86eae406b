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

// CreateRule persists a new revenue rule to the database.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule *models.RevenueRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if rule.CreatedAt == 0 {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A new default displaces any previous one.
	if rule.IsDefault {
		if _, err := tx.ExecContext(ctx,
			"UPDATE revenue_rules SET is_default = 0 WHERE is_default = 1",
		); err != nil {
			return fmt.Errorf("failed to clear previous default rule: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revenue_rules
		 (id, rule_name, admin_percent, team_percent, vendor_percent, is_default, is_active, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.RuleName,
		float64(rule.AdminPercent), float64(rule.TeamPercent), float64(rule.VendorPercent),
		rule.IsDefault, rule.IsActive, rule.CreatedBy, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const ruleColumns = `id, rule_name, admin_percent, team_percent, vendor_percent, is_default, is_active, created_by, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*models.RevenueRule, error) {
	rule := &models.RevenueRule{}
	var admin, team, vendor float64
	err := row.Scan(&rule.ID, &rule.RuleName, &admin, &team, &vendor,
		&rule.IsDefault, &rule.IsActive, &rule.CreatedBy, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rule.AdminPercent = models.Percent(admin)
	rule.TeamPercent = models.Percent(team)
	rule.VendorPercent = models.Percent(vendor)
	return rule, nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStore) GetRule(ctx context.Context, id string) (*models.RevenueRule, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM revenue_rules WHERE id = ?", id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// GetDefaultRule returns the rule currently marked default.
func (s *SQLiteStore) GetDefaultRule(ctx context.Context) (*models.RevenueRule, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM revenue_rules WHERE is_default = 1 AND is_active = 1")
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("default rule: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default rule: %w", err)
	}
	return rule, nil
}

// ListRules returns all rules, newest first.
func (s *SQLiteStore) ListRules(ctx context.Context, activeOnly bool) ([]*models.RevenueRule, error) {
	query := "SELECT " + ruleColumns + " FROM revenue_rules"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.RevenueRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

// SetDefaultRule marks the given rule default, clearing the flag on every
// other rule in the same transaction.
func (s *SQLiteStore) SetDefaultRule(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE revenue_rules SET is_default = 0 WHERE is_default = 1",
	); err != nil {
		return fmt.Errorf("failed to clear previous default rule: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE revenue_rules SET is_default = 1, updated_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set default rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, storage.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
