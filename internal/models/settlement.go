package models

import "github.com/shopspring/decimal"

// Settlement is an immutable record of one atomic batch clearing of
// same-party, same-currency pending ledger entries. Proof URLs may be
// appended once after creation; nothing else ever changes.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	Party Party `json:"party"`

	// LedgerEntryIDs are the entries cleared by this settlement, in the
	// order they were requested.
	LedgerEntryIDs []string `json:"ledgerEntryIds"`

	// TotalAmount is the signed net of the cleared entries (credits
	// positive, debits negative), rounded to 2 decimals at commit time.
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency"`

	// SettlementDate is the Unix timestamp the settlement takes effect.
	SettlementDate int64 `json:"settlementDate"`

	Remarks string `json:"remarks,omitempty"`

	// CreatedBy is the user ID that requested the settlement.
	CreatedBy string `json:"createdBy"`

	// CreatedAt is the Unix timestamp the record was written.
	CreatedAt int64 `json:"createdAt"`

	// ProofURLs are links to already-uploaded payment proofs, attached
	// post-creation as a single additive update.
	ProofURLs []string `json:"proofUrls,omitempty"`
}

// PartyBalance is a read-time aggregate over a party's pending entries.
// It is derived, never persisted.
type PartyBalance struct {
	Party Party

	// TotalPending is the signed sum over pending entries (credits
	// positive, debits negative), rounded to 2 decimals.
	TotalPending decimal.Decimal
	Currency     string

	// LastUpdated is the Unix timestamp the aggregate was computed.
	LastUpdated int64

	// Err records a per-party aggregation failure. When set, TotalPending
	// is zero; a failure for one party never aborts the whole aggregate.
	Err error
}

// CurrencyTotal is a per-currency signed sum, used by the store's pending
// balance aggregation.
type CurrencyTotal struct {
	Currency string
	Total    decimal.Decimal
}

// SettlementStats aggregates committed settlements, optionally filtered
// by party.
type SettlementStats struct {
	TotalSettlements int             `json:"totalSettlements"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	AverageAmount    decimal.Decimal `json:"averageAmount"`

	// SettlementsThisMonth and AmountThisMonth cover settlements whose
	// SettlementDate falls in the current calendar month.
	SettlementsThisMonth int             `json:"settlementsThisMonth"`
	AmountThisMonth      decimal.Decimal `json:"amountThisMonth"`
}

// RecommendedSettlement is a read-time grouping of a party's pending
// entries by (currency, project), ordered by descending net total.
type RecommendedSettlement struct {
	Party          Party           `json:"party"`
	Currency       string          `json:"currency"`
	ProjectID      string          `json:"projectId"`
	LedgerEntryIDs []string        `json:"ledgerEntryIds"`
	NetTotal       decimal.Decimal `json:"netTotal"`
	EntryCount     int             `json:"entryCount"`
}
