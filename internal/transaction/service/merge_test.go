package service

import (
	"testing"
	"time"

	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func mkItem(source domain.Source, ms int64, id string) item {
	at := epoch.Add(time.Duration(ms) * time.Millisecond)
	return item{
		source: source,
		key:    domain.Pivot{CreatedAt: at, ID: id},
		tx:     &domain.Transaction{ID: id, Source: source, CreatedAt: at, Type: source.TransactionType()},
	}
}

func skipped(source domain.Source, ms int64, id string) item {
	it := mkItem(source, ms, id)
	it.tx = nil
	return it
}

func pageIDs(page []domain.Transaction) []string {
	out := make([]string, 0, len(page))
	for _, tx := range page {
		out = append(out, tx.Source.String()+":"+tx.ID)
	}
	return out
}

func TestPaginateTieBreaksOnIDAcrossSources(t *testing.T) {
	batches := []batch{
		{source: domain.SourceSubscriptions, items: []item{mkItem(domain.SourceSubscriptions, 10, "a")}},
		{source: domain.SourceItemQuantityChanges, items: []item{mkItem(domain.SourceItemQuantityChanges, 10, "b")}},
		{source: domain.SourceOneTimePurchases, items: []item{mkItem(domain.SourceOneTimePurchases, 11, "0")}},
	}

	state := paginate(batches, domain.Cursor{}, "", 10)
	assert.Equal(t, []string{"one_time_purchases:0", "item_quantity_changes:b", "subscriptions:a"}, pageIDs(state.page))
	assert.True(t, state.done)
}

func TestPaginateIdenticalKeysFollowSourceOrder(t *testing.T) {
	batches := []batch{
		{source: domain.SourceSubscriptions, items: []item{mkItem(domain.SourceSubscriptions, 5, "x")}},
		{source: domain.SourceSubscriptionInvoices, items: []item{mkItem(domain.SourceSubscriptionInvoices, 5, "x")}},
	}

	state := paginate(batches, domain.Cursor{}, "", 1)
	assert.Equal(t, []string{"subscriptions:x"}, pageIDs(state.page))
	assert.False(t, state.done)
	assert.Equal(t, "x|||", state.cursor.String())
}

func TestPaginateTruncatesAndCarriesFragments(t *testing.T) {
	incoming := domain.Cursor{"s9", "", "o9", "i9"}
	batches := []batch{
		{source: domain.SourceSubscriptions, truncated: true, items: []item{
			mkItem(domain.SourceSubscriptions, 9, "s8"),
			mkItem(domain.SourceSubscriptions, 7, "s7"),
		}},
		{source: domain.SourceOneTimePurchases, truncated: true, items: []item{
			mkItem(domain.SourceOneTimePurchases, 8, "o8"),
			mkItem(domain.SourceOneTimePurchases, 1, "o1"),
		}},
	}

	state := paginate(batches, incoming, "", 2)
	assert.Equal(t, []string{"subscriptions:s8", "one_time_purchases:o8"}, pageIDs(state.page))
	assert.False(t, state.done)
	assert.Equal(t, "s8||o8|i9", state.cursor.String())
}

func TestPaginateShortPageIsDone(t *testing.T) {
	batches := []batch{
		{source: domain.SourceSubscriptions, items: []item{mkItem(domain.SourceSubscriptions, 3, "s")}},
		{source: domain.SourceItemQuantityChanges},
	}

	state := paginate(batches, domain.Cursor{}, "", 5)
	assert.Len(t, state.page, 1)
	assert.True(t, state.done)
}

func TestPaginateStopsAtTruncatedWindowOfSkippedRecords(t *testing.T) {
	batches := []batch{
		{source: domain.SourceSubscriptions, truncated: true, items: []item{
			skipped(domain.SourceSubscriptions, 20, "bad2"),
			skipped(domain.SourceSubscriptions, 19, "bad1"),
		}},
		{source: domain.SourceItemQuantityChanges, items: []item{
			mkItem(domain.SourceItemQuantityChanges, 21, "q2"),
			mkItem(domain.SourceItemQuantityChanges, 1, "q1"),
		}},
	}

	state := paginate(batches, domain.Cursor{}, "", 2)
	assert.Equal(t, []string{"item_quantity_changes:q2"}, pageIDs(state.page))
	assert.False(t, state.done)
	assert.Equal(t, "bad1|q2||", state.cursor.String())
}

func TestPaginateTypeFilter(t *testing.T) {
	batches := []batch{
		{source: domain.SourceSubscriptions, items: []item{mkItem(domain.SourceSubscriptions, 2, "s")}},
		{source: domain.SourceItemQuantityChanges, items: []item{mkItem(domain.SourceItemQuantityChanges, 3, "q")}},
	}

	state := paginate(batches, domain.Cursor{}, domain.TransactionTypePurchase, 5)
	assert.Equal(t, []string{"subscriptions:s"}, pageIDs(state.page))
	assert.True(t, state.done)
}

func TestPaginateEmpty(t *testing.T) {
	state := paginate(nil, domain.Cursor{}, "", 50)
	assert.Empty(t, state.page)
	assert.NotNil(t, state.page)
	assert.True(t, state.done)
}
