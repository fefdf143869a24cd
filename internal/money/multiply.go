// Package money implements exact arithmetic on decimal-string money amounts.
//
// Amounts are carried as strings ("10", "-0.05") and converted to integer
// minor units for arithmetic, so no value ever passes through a binary float.
package money

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingledger/internal/currency"
)

var ErrInvalidAmount = errors.New("invalid_amount")

// Zero is the canonical zero amount.
const Zero = "0"

var amountPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// Multiply returns amount * quantity as a normalized decimal string.
// Quantities are integers by type, so only the amount can be rejected.
//
// The amount is scaled to minor units of cur (or further, when it carries more
// fractional digits than the currency defines), multiplied as a big integer and
// scaled back. Output never has trailing fractional zeros, never has leading
// integer zeros and never renders a negative zero.
func Multiply(amount string, quantity int64, cur currency.Currency) (string, error) {
	if quantity == 0 {
		return Zero, nil
	}

	minor, scale, err := toMinorUnits(amount, cur.Decimals)
	if err != nil {
		return "", err
	}

	product := new(big.Int).Mul(minor, big.NewInt(quantity))
	return formatMinorUnits(product, scale), nil
}

// IsZero reports whether a normalized amount string is zero.
func IsZero(amount string) bool {
	return amount == Zero
}

// Validate reports whether amount is a well-formed decimal string.
func Validate(amount string) error {
	if !amountPattern.MatchString(amount) {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return nil
}

func toMinorUnits(amount string, decimals int) (*big.Int, int32, error) {
	if err := Validate(amount); err != nil {
		return nil, 0, err
	}
	if decimals < 0 {
		return nil, 0, fmt.Errorf("%w: negative currency decimals", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	// decimal keeps the written exponent, so "10.00" has exponent -2.
	scale := int32(decimals)
	if fractional := -d.Exponent(); fractional > scale {
		scale = fractional
	}

	return d.Shift(scale).BigInt(), scale, nil
}

func formatMinorUnits(minor *big.Int, scale int32) string {
	if minor.Sign() == 0 {
		return Zero
	}
	return decimal.NewFromBigInt(minor, -scale).String()
}
