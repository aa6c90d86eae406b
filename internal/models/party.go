package models

import "fmt"

// Party is one of the three fixed beneficiaries tracked in the ledger.
type Party string

const (
	PartyAdmin  Party = "admin"
	PartyTeam   Party = "team"
	PartyVendor Party = "vendor"
)

// AllParties lists every recognized party in split order. The order matters
// for split calculation: the last party with a nonzero percentage absorbs
// the rounding residual.
var AllParties = []Party{PartyAdmin, PartyTeam, PartyVendor}

// ParseParty converts a raw string into a Party.
func ParseParty(s string) (Party, error) {
	p := Party(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown party: %q", s)
	}
	return p, nil
}

// Valid reports whether p is a recognized party.
func (p Party) Valid() bool {
	switch p {
	case PartyAdmin, PartyTeam, PartyVendor:
		return true
	}
	return false
}

// Title returns the capitalized display name used in validation messages.
func (p Party) Title() string {
	switch p {
	case PartyAdmin:
		return "Admin"
	case PartyTeam:
		return "Team"
	case PartyVendor:
		return "Vendor"
	}
	return string(p)
}

// EntryType marks a ledger entry as money owed to a party (credit) or
// recovered from a party (debit).
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// Valid reports whether t is a recognized entry type.
func (t EntryType) Valid() bool {
	return t == EntryCredit || t == EntryDebit
}

// EntryStatus is the settlement state of a ledger entry. The only legal
// transition is pending -> cleared, and only through a settlement commit.
type EntryStatus string

const (
	StatusPending EntryStatus = "pending"
	StatusCleared EntryStatus = "cleared"
)
