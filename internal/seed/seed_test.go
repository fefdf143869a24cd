package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/billingledger/internal/clock"
	"github.com/smallbiznis/billingledger/internal/migration"
	"github.com/smallbiznis/billingledger/internal/transaction/builder"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"github.com/smallbiznis/billingledger/internal/transaction/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    conn,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 30, 0, 123_456_789, time.UTC)),
		Node:  node,
		Log:   zap.NewNop(),
	}), conn
}

func TestSeedWritesEverySource(t *testing.T) {
	seeder, _ := newSeeder(t)

	res, err := seeder.Seed(context.Background(), Options{TenantID: 7, Count: 10})
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), res.TenantID)
	assert.Equal(t, 10, res.Subscriptions)
	assert.Equal(t, 10, res.OneTimePurchases)
	assert.Equal(t, 10, res.ItemQuantityChanges)
	assert.Equal(t, 9, res.SubscriptionInvoices)
	assert.Equal(t, 39, res.Total())
	assert.Zero(t, res.Skipped)
}

func TestSeedIsIdempotent(t *testing.T) {
	seeder, _ := newSeeder(t)
	ctx := context.Background()

	_, err := seeder.Seed(ctx, Options{TenantID: 7, Count: 5})
	require.NoError(t, err)

	res, err := seeder.Seed(ctx, Options{TenantID: 7, Count: 5})
	require.NoError(t, err)
	assert.Zero(t, res.Total())
	assert.Equal(t, 19, res.Skipped)
}

func TestSeedRecordsProjectIntoTransactions(t *testing.T) {
	seeder, conn := newSeeder(t)
	ctx := context.Background()
	_, err := seeder.Seed(ctx, Options{TenantID: 7, Count: 12})
	require.NoError(t, err)

	repo := repository.Provide()
	filter := domain.FetchFilter{Limit: 100}

	subs, err := repo.ListSubscriptions(ctx, conn, 7, filter)
	require.NoError(t, err)
	refunded, testMode := 0, 0
	for _, sub := range subs {
		assert.Zero(t, sub.CreatedAt.Nanosecond()%int(time.Millisecond))
		tx, err := builder.Build(sub)
		require.NoError(t, err, sub.ID)
		if len(tx.AdjustedBy) > 0 {
			refunded++
		}
		if tx.TestMode {
			testMode++
		}
	}
	assert.Positive(t, refunded)
	assert.Positive(t, testMode)

	purchases, err := repo.ListOneTimePurchases(ctx, conn, 7, filter)
	require.NoError(t, err)
	require.Len(t, purchases, 12)
	assert.Equal(t, "api-credits-pack", *purchases[0].ProductID)
	for _, p := range purchases {
		_, err := builder.Build(p)
		require.NoError(t, err, p.ID)
	}

	invoices, err := repo.ListSubscriptionInvoices(ctx, conn, 7, filter)
	require.NoError(t, err)
	require.NotEmpty(t, invoices)
	for _, inv := range invoices {
		tx, err := builder.Build(inv)
		require.NoError(t, err, inv.ID)
		assert.Equal(t, domain.TransactionTypeSubscriptionRenewal, tx.Type)
		assert.True(t, tx.EffectiveAt.Equal(*inv.PeriodStart))
	}
}

func TestSeedGeneratesTenant(t *testing.T) {
	seeder, _ := newSeeder(t)

	res, err := seeder.Seed(context.Background(), Options{Count: 1})
	require.NoError(t, err)
	assert.NotZero(t, res.TenantID)
}

func TestSeedRejectsInvalidCount(t *testing.T) {
	seeder, _ := newSeeder(t)

	_, err := seeder.Seed(context.Background(), Options{TenantID: 7, Count: -1})
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = seeder.Seed(context.Background(), Options{TenantID: 7, Count: MaxCount + 1})
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestBuildCatalogSlugs(t *testing.T) {
	catalog, err := buildCatalog()
	require.NoError(t, err)
	ids := []string{}
	for _, p := range catalog {
		ids = append(ids, p.id)
	}
	assert.Equal(t, []string{"starter", "pro-team", "api-credits-pack"}, ids)
}
