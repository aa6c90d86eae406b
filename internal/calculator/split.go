package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/models"
)

var (
	// ErrInvalidAmount is returned when the amount to split is not
	// strictly positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidRule is returned when no revenue rule is supplied.
	ErrInvalidRule = errors.New("revenue rule is required")
)

var oneHundred = decimal.NewFromInt(100)

// CalculateSplit distributes amount across the parties according to the
// rule's percentages. Each share is rounded to 2 decimals; the last party
// with a nonzero percentage absorbs the rounding residual, so the emitted
// shares always sum to the original amount exactly.
//
// A party with a percentage of exactly 0 is omitted from the result
// entirely. Rounding a small share down to 0 does not omit the party.
func CalculateSplit(amount decimal.Decimal, currency string, rule *models.RevenueRule) (map[models.Party]models.Money, error) {
	if rule == nil {
		return nil, ErrInvalidRule
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	// The residual from rounding the earlier shares lands on the last
	// party with a nonzero percentage.
	last := models.Party("")
	for _, party := range models.AllParties {
		if rule.PercentFor(party) > 0 {
			last = party
		}
	}

	shares := make(map[models.Party]models.Money)
	allocated := decimal.Zero
	for _, party := range models.AllParties {
		pct := rule.PercentFor(party)
		if pct == 0 {
			continue
		}
		var share decimal.Decimal
		if party == last {
			share = amount.Sub(allocated)
		} else {
			share = amount.Mul(decimal.NewFromFloat(float64(pct))).Div(oneHundred).Round(2)
			allocated = allocated.Add(share)
		}
		shares[party] = models.Money{Amount: share, Currency: currency}
	}

	return shares, nil
}
