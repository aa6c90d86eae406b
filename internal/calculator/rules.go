// Package calculator holds the pure revenue-split logic: rule validation
// and the percentage split of a payment amount. It has no storage or
// transport dependencies.
package calculator

import (
	"math"
	"strings"

	"github.com/mmynk/revledger/internal/models"
)

// percentSumTolerance is the floating-point slack allowed on the
// admin+team+vendor == 100 check. Percentages arrive from operators as
// floats, so an exact comparison would reject 33.33+33.33+33.34.
const percentSumTolerance = 0.01

// RuleValidation is the accumulated result of validating a revenue rule.
// Errors are user-facing messages; all applicable checks are reported,
// not just the first failure.
type RuleValidation struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// ValidateRule checks a revenue rule definition against the business
// rules: a trimmed name of at least 3 characters, each percentage a
// finite number in [0, 100], and the three percentages summing to 100
// within tolerance. The sum check only runs when all three percentages
// are individually valid, so a bad range does not also produce a
// confusing sum error.
func ValidateRule(rule *models.RevenueRule) RuleValidation {
	var errs []string
	if rule == nil {
		return RuleValidation{Valid: false, Errors: []string{"Rule name is required"}}
	}

	if rule.RuleName == "" {
		errs = append(errs, "Rule name is required")
	} else if len(strings.TrimSpace(rule.RuleName)) < 3 {
		errs = append(errs, "Rule name must be at least 3 characters long")
	}

	percentsValid := true
	for _, party := range models.AllParties {
		if !rule.PercentFor(party).Valid() {
			errs = append(errs, party.Title()+" percentage must be a number between 0 and 100")
			percentsValid = false
		}
	}

	if percentsValid {
		sum := float64(rule.AdminPercent) + float64(rule.TeamPercent) + float64(rule.VendorPercent)
		if math.Abs(sum-100) > percentSumTolerance {
			errs = append(errs, "Total percentages must equal 100%")
		}
	}

	return RuleValidation{Valid: len(errs) == 0, Errors: errs}
}
