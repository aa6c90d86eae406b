package models

import "github.com/shopspring/decimal"

// Money is an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// LedgerEntry is one signed monetary obligation owed to a party for a
// project/payment. Entries are created pending and mutated exactly once,
// when a settlement commit transitions them to cleared.
type LedgerEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string `json:"id"`

	// PaymentID references the payment this entry was split from.
	// Empty for manual adjustments.
	PaymentID string `json:"paymentId,omitempty"`

	// ProjectID is the project the underlying payment belongs to.
	ProjectID string `json:"projectId"`

	// RevenueRuleID references the rule used to compute the split.
	// Empty for manual adjustments.
	RevenueRuleID string `json:"revenueRuleId,omitempty"`

	Type  EntryType `json:"type"`
	Party Party     `json:"party"`

	// Amount is nonnegative; the sign is carried by Type. A split share
	// may round down to zero without dropping the party's entry.
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	// Date is the Unix timestamp of the underlying payment or adjustment.
	Date int64 `json:"date"`

	Status  EntryStatus `json:"status"`
	Remarks string      `json:"remarks,omitempty"`
}

// SignedAmount returns the amount signed by entry type: credits positive,
// debits negative.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Type == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Payment is the input to entry creation: a received amount to be split
// across the parties by a revenue rule.
type Payment struct {
	ID        string
	ProjectID string
	Amount    decimal.Decimal
	Currency  string

	// Date is the Unix timestamp the payment was received.
	Date int64
}
