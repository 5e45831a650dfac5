package domain

import (
	"github.com/shopspring/decimal"

	dErrors "flightsurety/pkg/domain-errors"
)

// ParseAmount reads a value amount in ledger units ("10", "0.5").
// Negative amounts are rejected; zero is allowed and left to callers to judge.
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "amount must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	return d, nil
}
