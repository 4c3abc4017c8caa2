package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned by ParseAmount for unusable input.
var ErrInvalidAmount = errors.New("invalid amount")

// NormalizeEmail trims surrounding whitespace and lower-cases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseAmount parses a decimal money amount such as "-12.50". The result is
// rounded to two places; zero is rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: must be a decimal number", ErrInvalidAmount)
	}
	d = d.Round(2)
	if d.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: must be non-zero", ErrInvalidAmount)
	}
	return d, nil
}
