package entity

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/zoompay/internal/domain/workflow"
)

// MaxAmount is the exclusive upper bound for a voucher amount
var MaxAmount = decimal.New(1, 12)

// ParseAmount parses a user-entered amount. It must be a finite number greater
// than zero, below MaxAmount, with at most two decimal places.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, workflow.NewValidationError("amount", "amount is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, workflow.NewValidationError("amount", "amount must be a number")
	}
	if !d.IsPositive() {
		return 0, workflow.NewValidationError("amount", "amount must be greater than zero")
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return 0, workflow.NewValidationError("amount", "amount is too large")
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, workflow.NewValidationError("amount", "amount must have at most two decimal places")
	}

	f := d.InexactFloat64()
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, workflow.NewValidationError("amount", "amount must be a finite number greater than zero")
	}
	return f, nil
}

// FormatAmount renders an amount with two decimal places
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
