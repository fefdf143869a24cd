package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339Nano, value)
	require.NoError(t, err)
	return parsed
}

func TestTransactionJSONShape(t *testing.T) {
	created := mustTime(t, "2026-03-01T12:00:00.250Z")
	subID := "sub_1"
	tx := Transaction{
		ID:          subID,
		Source:      SourceSubscriptions,
		CreatedAt:   created,
		EffectiveAt: created,
		Type:        TransactionTypePurchase,
		Entries: []Entry{
			&ProductGrantEntry{
				EntryBase:      EntryBase{CustomerType: CustomerTypeUser, CustomerID: "u1"},
				Quantity:       1,
				SubscriptionID: &subID,
			},
			&MoneyTransferEntry{
				EntryBase:     EntryBase{CustomerType: CustomerTypeUser, CustomerID: "u1"},
				ChargedAmount: map[string]string{"USD": "1000"},
				NetAmount:     map[string]string{"USD": "1000"},
			},
		},
	}

	raw, err := json.Marshal(tx)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "sub_1", decoded["id"])
	assert.Equal(t, float64(created.UnixMilli()), decoded["created_at"])
	assert.Equal(t, "purchase", decoded["type"])
	assert.Equal(t, []any{}, decoded["adjusted_by"])
	assert.Equal(t, false, decoded["test_mode"])

	entries := decoded["entries"].([]any)
	require.Len(t, entries, 2)
	grant := entries[0].(map[string]any)
	assert.Equal(t, "product_grant", grant["type"])
	assert.Equal(t, "user", grant["customer_type"])
	assert.Equal(t, "sub_1", grant["subscription_id"])
	assert.Nil(t, grant["adjusted_transaction_id"])
	assert.NotContains(t, grant, "one_time_purchase_id")

	transfer := entries[1].(map[string]any)
	assert.Equal(t, "money_transfer", transfer["type"])
	assert.Equal(t, map[string]any{"USD": "1000"}, transfer["charged_amount"])
}

func TestParseTransactionType(t *testing.T) {
	typ, err := ParseTransactionType("subscription-renewal")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeSubscriptionRenewal, typ)

	_, err = ParseTransactionType("refund")
	assert.ErrorIs(t, err, ErrInvalidTransactionType)
}

func TestCustomerTypeRoundTrip(t *testing.T) {
	typ, err := ParseCustomerType("Team")
	require.NoError(t, err)
	assert.Equal(t, CustomerTypeTeam, typ)
	assert.Equal(t, "TEAM", typ.Stored())
	assert.Equal(t, CustomerTypeTeam, CustomerTypeFromStored("TEAM"))

	_, err = ParseCustomerType("org")
	assert.ErrorIs(t, err, ErrInvalidCustomerType)
}

func TestSourceFetchErrorMatching(t *testing.T) {
	err := error(&SourceFetchError{Source: SourceOneTimePurchases, Err: assert.AnError})
	assert.ErrorIs(t, err, ErrSourceFetch)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "one_time_purchases")
}
