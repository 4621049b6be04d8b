package payments

import (
	"errors"
	"regexp"
	"strings"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest major-unit amount the decimal(12,2) amount
// columns can store.
var MaxAmount = decimal.RequireFromString("9999999999.99")

var maxMinor = MaxAmount.Mul(hundred)

// ErrAmountOutOfRange is returned for amounts that round beyond MaxAmount
var ErrAmountOutOfRange = errors.New("amount out of range")

var currencyCode = regexp.MustCompile(`^[a-z]{3}$`)

// ToMinorUnits converts a major-unit amount to minor units, rounding half
// away from zero. For the positive amounts accepted here that is round
// half up: 10.005 becomes 1001. Amounts whose magnitude rounds past
// MaxAmount return ErrAmountOutOfRange.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(hundred).Round(0)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrAmountOutOfRange
	}
	return minor.IntPart(), nil
}

// checkAmount rejects amounts the store cannot hold
func checkAmount(amount decimal.Decimal) error {
	if _, err := ToMinorUnits(amount); err != nil {
		return apperr.Validation("amount", "must not exceed %s", MaxAmount.StringFixed(2))
	}
	return nil
}

// FromMinorUnits converts minor units back to a major-unit amount
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// normalizeCurrency lowercases code and falls back to def when empty.
// It reports false for anything that is not a three letter code.
func normalizeCurrency(code, def string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = def
	}
	return code, currencyCode.MatchString(code)
}
