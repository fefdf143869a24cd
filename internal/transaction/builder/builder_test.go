package builder

import (
	"testing"
	"time"

	productdomain "github.com/smallbiznis/billingledger/internal/product/domain"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var createdAt = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func monthlyProduct(t *testing.T) datatypes.JSON {
	t.Helper()
	raw, err := productdomain.Snapshot{
		DisplayName: "Pro",
		Stackable:   false,
		Prices: productdomain.PriceSet{Entries: map[string]productdomain.Price{
			"monthly": {"USD": "1000", "interval": []any{float64(1), "month"}, "serverOnly": false},
			"eur":     {"EUR": "12.50"},
		}},
	}.Encode()
	require.NoError(t, err)
	return raw
}

func subscription(t *testing.T) *domain.Subscription {
	return &domain.Subscription{
		ID:             "sub_1",
		CustomerID:     "user_1",
		CustomerType:   "USER",
		ProductID:      strPtr("pro"),
		Product:        monthlyProduct(t),
		PriceID:        strPtr("monthly"),
		Quantity:       1,
		CreationSource: "PURCHASE_PAGE",
		CreatedAt:      createdAt,
	}
}

func TestSubscriptionPurchase(t *testing.T) {
	tx, err := Build(subscription(t))
	require.NoError(t, err)

	assert.Equal(t, "sub_1", tx.ID)
	assert.Equal(t, domain.SourceSubscriptions, tx.Source)
	assert.Equal(t, domain.TransactionTypePurchase, tx.Type)
	assert.Equal(t, createdAt, tx.EffectiveAt)
	assert.False(t, tx.TestMode)
	assert.Empty(t, tx.AdjustedBy)
	require.Len(t, tx.Entries, 2)

	grant, ok := tx.Entries[0].(*domain.ProductGrantEntry)
	require.True(t, ok)
	assert.Equal(t, int64(1), grant.Quantity)
	assert.Equal(t, "sub_1", *grant.SubscriptionID)
	assert.Nil(t, grant.OneTimePurchaseID)
	assert.Equal(t, domain.CustomerTypeUser, grant.CustomerType)
	assert.Equal(t, "Pro", grant.Product.DisplayName)

	transfer, ok := tx.Entries[1].(*domain.MoneyTransferEntry)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"USD": "1000"}, transfer.ChargedAmount)
	assert.Equal(t, map[string]string{"USD": "1000"}, transfer.NetAmount)
}

func TestRefundedSubscriptionPointsAtGrant(t *testing.T) {
	sub := subscription(t)
	refunded := createdAt.Add(time.Hour)
	sub.RefundedAt = &refunded

	tx, err := Subscription(sub)
	require.NoError(t, err)
	require.Len(t, tx.Entries, 2)
	assert.Equal(t, []domain.AdjustmentRef{{TransactionID: "sub_1:refund", EntryIndex: 0}}, tx.AdjustedBy)
}

func TestTestModePurchaseHasNoMoneyTransfer(t *testing.T) {
	sub := subscription(t)
	sub.CreationSource = domain.CreationSourceTestMode
	refunded := createdAt.Add(time.Minute)
	sub.RefundedAt = &refunded

	tx, err := Subscription(sub)
	require.NoError(t, err)
	assert.True(t, tx.TestMode)
	require.Len(t, tx.Entries, 1)
	assert.Equal(t, domain.EntryKindProductGrant, tx.Entries[0].Kind())
	assert.Equal(t, 0, tx.AdjustedBy[0].EntryIndex)
}

func TestAdjustmentIndexFindsFirstGrant(t *testing.T) {
	entries := []domain.Entry{
		&domain.MoneyTransferEntry{},
		&domain.ProductGrantEntry{},
		&domain.ProductGrantEntry{},
	}
	assert.Equal(t, 1, AdjustmentIndex(entries))
	assert.Equal(t, 0, AdjustmentIndex([]domain.Entry{&domain.MoneyTransferEntry{}}))
	assert.Equal(t, 0, AdjustmentIndex(nil))
}

func TestOneTimePurchase(t *testing.T) {
	purchase := &domain.OneTimePurchase{
		ID:             "otp_1",
		CustomerID:     "team_1",
		CustomerType:   "TEAM",
		Product:        monthlyProduct(t),
		PriceID:        strPtr("eur"),
		Quantity:       3,
		CreationSource: "API_GRANT",
		CreatedAt:      createdAt,
	}

	tx, err := Build(purchase)
	require.NoError(t, err)
	require.Len(t, tx.Entries, 2)

	grant := tx.Entries[0].(*domain.ProductGrantEntry)
	assert.Equal(t, "otp_1", *grant.OneTimePurchaseID)
	assert.Nil(t, grant.SubscriptionID)
	assert.Nil(t, grant.ProductID)

	transfer := tx.Entries[1].(*domain.MoneyTransferEntry)
	assert.Equal(t, domain.CustomerTypeTeam, transfer.CustomerType)
	assert.Equal(t, map[string]string{"EUR": "37.5"}, transfer.ChargedAmount)
	assert.Empty(t, transfer.NetAmount)
}

func TestPurchaseWithUnknownPriceKeepsOnlyGrant(t *testing.T) {
	sub := subscription(t)
	sub.PriceID = strPtr("retired")

	tx, err := Subscription(sub)
	require.NoError(t, err)
	require.Len(t, tx.Entries, 1)
	assert.Equal(t, domain.EntryKindProductGrant, tx.Entries[0].Kind())
}

func TestPurchaseWithMalformedSnapshot(t *testing.T) {
	sub := subscription(t)
	sub.Product = datatypes.JSON(`{"prices": 12}`)

	_, err := Subscription(sub)
	assert.Error(t, err)
}

func TestItemQuantityChange(t *testing.T) {
	tx, err := Build(&domain.ItemQuantityChange{
		ID:           "iqc_1",
		CustomerID:   "c_1",
		CustomerType: "CUSTOM",
		ItemID:       "credits",
		Quantity:     -5,
		CreatedAt:    createdAt,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeManualItemQuantityChange, tx.Type)
	assert.False(t, tx.TestMode)
	assert.Empty(t, tx.AdjustedBy)
	require.Len(t, tx.Entries, 1)
	entry := tx.Entries[0].(*domain.ItemQuantityChangeEntry)
	assert.Equal(t, "credits", entry.ItemID)
	assert.Equal(t, int64(-5), entry.Quantity)
	assert.Equal(t, domain.CustomerTypeCustom, entry.CustomerType)
}

func TestSubscriptionRenewal(t *testing.T) {
	sub := subscription(t)
	sub.Quantity = 2
	periodStart := createdAt.Add(24 * time.Hour)
	invoice := &domain.SubscriptionInvoice{
		ID:             "inv_1",
		SubscriptionID: sub.ID,
		PeriodStart:    &periodStart,
		CreatedAt:      createdAt.Add(25 * time.Hour),
		Subscription:   sub,
	}

	tx, err := Build(invoice)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeSubscriptionRenewal, tx.Type)
	assert.Equal(t, periodStart, tx.EffectiveAt)
	assert.Equal(t, invoice.CreatedAt, tx.CreatedAt)
	assert.Empty(t, tx.AdjustedBy)
	require.Len(t, tx.Entries, 1)

	transfer := tx.Entries[0].(*domain.MoneyTransferEntry)
	assert.Equal(t, "user_1", transfer.CustomerID)
	assert.Equal(t, map[string]string{"USD": "2000"}, transfer.ChargedAmount)
	assert.Equal(t, map[string]string{"USD": "2000"}, transfer.NetAmount)
}

func TestSubscriptionRenewalFailures(t *testing.T) {
	_, err := SubscriptionRenewal(&domain.SubscriptionInvoice{ID: "inv_orphan", CreatedAt: createdAt})
	assert.ErrorIs(t, err, ErrMissingSubscription)

	sub := subscription(t)
	sub.PriceID = nil
	_, err = SubscriptionRenewal(&domain.SubscriptionInvoice{ID: "inv_free", CreatedAt: createdAt, Subscription: sub})
	assert.ErrorIs(t, err, ErrNothingCharged)
}
