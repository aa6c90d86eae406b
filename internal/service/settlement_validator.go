package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/metrics"
	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/storage"
)

// Validation messages are user-facing and rendered together, so they are
// fixed strings rather than wrapped errors.
const (
	msgValidParty      = "Valid party is required"
	msgNoEntries       = "At least one ledger entry must be selected"
	msgInvalidEntries  = "Some selected entries are invalid, already settled, or belong to different party"
	msgMixedCurrencies = "All selected entries must have the same currency"
	msgSystemError     = "Validation failed due to system error"
	warnNonPositiveNet = "Settlement total is not positive"
)

// SettlementRequest is a proposed settlement batch. Party arrives raw
// because it comes straight from the caller and validating it is the
// validator's job.
type SettlementRequest struct {
	Party          string   `json:"party"`
	LedgerEntryIDs []string `json:"ledgerEntryIds"`
	SettlementDate int64    `json:"settlementDate,omitempty"`
	Remarks        string   `json:"remarks,omitempty"`
}

// ValidationResult accumulates every applicable validation error so the
// caller can render them all at once. It is a value, never a Go error:
// validation failing is a normal outcome, not an exception.
type ValidationResult struct {
	Valid    bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// SettlementValidator checks a proposed settlement batch against the
// business rules before commit.
type SettlementValidator struct {
	store storage.Store
}

// NewSettlementValidator creates a validator backed by the given store.
func NewSettlementValidator(store storage.Store) *SettlementValidator {
	return &SettlementValidator{store: store}
}

// Validate runs every check and accumulates all applicable errors; it
// never short-circuits on the first failure and never panics the caller.
// An unexpected internal failure degrades to a generic invalid result.
func (v *SettlementValidator) Validate(ctx context.Context, req SettlementRequest) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Settlement validation panicked", "recovered", r)
			result = ValidationResult{Valid: false, Errors: []string{msgSystemError}}
		}
		if !result.Valid {
			metrics.ValidationFailures.Inc()
		}
	}()

	var errs, warnings []string

	party, err := models.ParseParty(req.Party)
	if err != nil {
		errs = append(errs, msgValidParty)
	}

	if len(req.LedgerEntryIDs) == 0 {
		errs = append(errs, msgNoEntries)
	}

	// Resolve every entry. A resolution failure counts as an invalid
	// entry, not a fatal error; all resolvable entries still feed the
	// currency check.
	invalid := false
	currencies := make(map[string]bool)
	netTotal := decimal.Zero
	for _, id := range req.LedgerEntryIDs {
		entry, err := v.store.GetEntry(ctx, id)
		if err != nil {
			invalid = true
			continue
		}
		currencies[entry.Currency] = true
		netTotal = netTotal.Add(entry.SignedAmount())
		if entry.Status != models.StatusPending || entry.Party != party {
			invalid = true
		}
	}
	if invalid {
		errs = append(errs, msgInvalidEntries)
	}
	if len(currencies) > 1 {
		errs = append(errs, msgMixedCurrencies)
	}

	if len(errs) == 0 && netTotal.Sign() <= 0 {
		warnings = append(warnings, warnNonPositiveNet)
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}
