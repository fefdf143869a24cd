// Package pricing extracts the selected price from a product snapshot and
// computes the amount charged for a quantity of it.
package pricing

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/billingledger/internal/currency"
	"github.com/smallbiznis/billingledger/internal/money"
	productdomain "github.com/smallbiznis/billingledger/internal/product/domain"
)

// internal-only price fields that never reach API consumers.
var internalPriceKeys = []string{"serverOnly", "freeTrial"}

// ResolveSelectedPrice returns the fields of the price with priceID, without
// internal-only keys. It returns nil when the product or price id is absent,
// when the product is include-by-default, or when no such price exists.
//
// Remaining keys are currency codes or descriptors like "interval"; callers
// tell them apart with currency.IsSupported.
func ResolveSelectedPrice(product *productdomain.Snapshot, priceID *string) productdomain.Price {
	if product == nil || priceID == nil || strings.TrimSpace(*priceID) == "" {
		return nil
	}
	if product.Prices.IncludeByDefault {
		return nil
	}

	selected, ok := product.Prices.Entries[*priceID]
	if !ok || selected == nil {
		return nil
	}

	out := make(productdomain.Price, len(selected))
	for key, value := range selected {
		out[key] = value
	}
	for _, key := range internalPriceKeys {
		delete(out, key)
	}
	return out
}

// BuildChargedAmount multiplies every registered currency amount in price by
// quantity. Currencies whose result is zero are omitted; a nil price yields an
// empty map.
func BuildChargedAmount(price productdomain.Price, quantity int64) (map[string]string, error) {
	charged := map[string]string{}
	if price == nil {
		return charged, nil
	}

	for _, cur := range currency.All() {
		raw, ok := price[cur.Code]
		if !ok {
			continue
		}
		amount, ok := raw.(string)
		if !ok {
			continue
		}

		total, err := money.Multiply(amount, quantity, cur)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", cur.Code, err)
		}
		if money.IsZero(total) {
			continue
		}
		charged[cur.Code] = total
	}

	return charged, nil
}
