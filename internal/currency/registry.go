// Package currency holds the static table of supported currencies and their
// minor-unit precision.
package currency

import (
	"sort"
	"strings"
)

// Currency describes an ISO currency and the number of digits in its minor unit.
type Currency struct {
	Code     string `json:"code"`
	Decimals int    `json:"decimals"`
}

var (
	USD = Currency{Code: "USD", Decimals: 2}
	EUR = Currency{Code: "EUR", Decimals: 2}
	GBP = Currency{Code: "GBP", Decimals: 2}
	JPY = Currency{Code: "JPY", Decimals: 0}
	INR = Currency{Code: "INR", Decimals: 2}
	AUD = Currency{Code: "AUD", Decimals: 2}
	CAD = Currency{Code: "CAD", Decimals: 2}
)

var registry = map[string]Currency{
	USD.Code: USD,
	EUR.Code: EUR,
	GBP.Code: GBP,
	JPY.Code: JPY,
	INR.Code: INR,
	AUD.Code: AUD,
	CAD.Code: CAD,
}

// Lookup returns the registered currency for code. Codes are case-sensitive
// upper-case ISO codes, matching how prices store them.
func Lookup(code string) (Currency, bool) {
	c, ok := registry[code]
	return c, ok
}

// IsSupported reports whether code is a registered currency code.
func IsSupported(code string) bool {
	_, ok := registry[code]
	return ok
}

// All returns every registered currency ordered by code.
func All() []Currency {
	out := make([]Currency, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Normalize upper-cases and trims a user supplied currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
