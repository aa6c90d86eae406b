package models

import "math"

// Percent is a revenue share percentage. A valid Percent is a finite
// number in [0, 100]; NaN and infinities are rejected up front so the
// calculator never has to re-check.
type Percent float64

// Valid reports whether the percentage is a finite number within [0, 100].
func (p Percent) Valid() bool {
	f := float64(p)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0 && f <= 100
}

// RevenueRule is a named percentage split distributing a payment across
// the three parties. The three percentages must sum to 100 (within the
// 0.01 tolerance enforced by the calculator's validator).
type RevenueRule struct {
	// ID is the unique identifier for the rule (UUID format).
	ID string `json:"id"`

	// RuleName is the operator-facing name (trimmed length >= 3).
	RuleName string `json:"ruleName"`

	AdminPercent  Percent `json:"adminPercent"`
	TeamPercent   Percent `json:"teamPercent"`
	VendorPercent Percent `json:"vendorPercent"`

	// IsDefault marks the rule applied when a payment names no rule.
	// At most one rule is default at a time; the store enforces this.
	IsDefault bool `json:"isDefault"`

	// IsActive is false for retired rules. A rule referenced by a ledger
	// entry is never deleted, only deactivated.
	IsActive bool `json:"isActive"`

	// CreatedBy is the user ID of the operator who created the rule.
	CreatedBy string `json:"createdBy"`

	// CreatedAt is the Unix timestamp when the rule was created.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64 `json:"updatedAt"`
}

// PercentFor returns the rule's share for the given party.
func (r *RevenueRule) PercentFor(party Party) Percent {
	switch party {
	case PartyAdmin:
		return r.AdminPercent
	case PartyTeam:
		return r.TeamPercent
	case PartyVendor:
		return r.VendorPercent
	}
	return 0
}
