// Package models defines the core domain models for the revenue-split
// and settlement ledger engine.
//
// The ledger tracks signed monetary obligations (credits and debits) owed
// to three fixed parties: admin, team and vendor. Incoming payments are
// split across the parties by a RevenueRule and recorded as pending
// LedgerEntry rows; a Settlement atomically clears a batch of same-party,
// same-currency pending entries and produces an immutable record.
//
// Monetary amounts are fixed-point decimals (shopspring/decimal) rounded
// to two places at every externally observable boundary. Timestamps are
// Unix seconds.
package models
