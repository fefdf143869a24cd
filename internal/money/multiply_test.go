package money

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/smallbiznis/billingledger/internal/currency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoDecimals = currency.Currency{Code: "USD", Decimals: 2}

func TestMultiplyTable(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		quantity int64
		cur      currency.Currency
		want     string
	}{
		{"no float drift", "0.1", 3, twoDecimals, "0.3"},
		{"trailing zeros stripped", "10.00", 1, twoDecimals, "10"},
		{"fraction normalized", "0.05", 2, twoDecimals, "0.1"},
		{"integer amount", "1000", 1, currency.USD, "1000"},
		{"negative amount", "-5", 3, currency.USD, "-15"},
		{"negative quantity", "5", -3, currency.USD, "-15"},
		{"both negative", "-5", -3, currency.USD, "15"},
		{"zero decimals", "7", 6, currency.JPY, "42"},
		{"zero decimals with fraction", "0.5", 3, currency.JPY, "1.5"},
		{"extra fractional digits kept exact", "0.125", 2, twoDecimals, "0.25"},
		{"leading zeros stripped", "0007.50", 2, twoDecimals, "15"},
		{"sub unit result", "0.01", 1, twoDecimals, "0.01"},
		{"zero amount never negative", "-0", 5, twoDecimals, "0"},
		{"zero amount with fraction", "0.00", -4, twoDecimals, "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Multiply(tc.amount, tc.quantity, tc.cur)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMultiplyZeroQuantity(t *testing.T) {
	for _, amount := range []string{"5", "-5", "0.33", "123456789.01"} {
		got, err := Multiply(amount, 0, twoDecimals)
		require.NoError(t, err)
		assert.Equal(t, "0", got)
	}
}

func TestMultiplyLargeMagnitudes(t *testing.T) {
	got, err := Multiply("92233720368547758.07", math.MaxInt64, currency.USD)
	require.NoError(t, err)
	// 9223372036854775807 * 9223372036854775807 / 100
	assert.Equal(t, "850705917302346158473969077842325012.49", got)

	huge := "1" + strings.Repeat("0", 40)
	got, err = Multiply(huge, 1000, currency.JPY)
	require.NoError(t, err)
	assert.Equal(t, "1"+strings.Repeat("0", 43), got)
}

func TestMultiplyRejectsMalformedAmount(t *testing.T) {
	for _, amount := range []string{"", "abc", "1e3", "1.", ".5", "+5", "1,00", " 1"} {
		_, err := Multiply(amount, 2, twoDecimals)
		assert.True(t, errors.Is(err, ErrInvalidAmount), "amount %q", amount)
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero("0"))
	assert.False(t, IsZero("0.1"))
}
