package service

import (
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
)

// item is one fetched record in feed order. tx is nil when the record could
// not be projected; the record still advances its source's cursor.
type item struct {
	source domain.Source
	key    domain.Pivot
	tx     *domain.Transaction
}

// batch is the ordered window fetched from one source. truncated means the
// source may hold more rows beyond the window.
type batch struct {
	source    domain.Source
	items     []item
	truncated bool
}

// pageState is the outcome of walking the merged batches.
type pageState struct {
	page   []domain.Transaction
	cursor domain.Cursor
	done   bool
}

// paginate merges batches by (created_at desc, id desc), with the position
// of a batch in the slice breaking exact ties, and emits up to limit
// transactions of typeFilter (any type when empty).
//
// The walk stops once the last fetched row of a truncated source has been
// consumed, since unfetched rows of that source may sort ahead of anything
// that follows. Each source's fragment in the returned cursor is the last
// record consumed from it, or the incoming fragment when nothing was.
func paginate(batches []batch, incoming domain.Cursor, typeFilter domain.TransactionType, limit int) pageState {
	state := pageState{
		page:   make([]domain.Transaction, 0, limit),
		cursor: incoming,
	}

	heads := make([]int, len(batches))
	horizon := false
	for len(state.page) < limit {
		best := -1
		for i := range batches {
			if heads[i] >= len(batches[i].items) {
				continue
			}
			if best < 0 || batches[i].items[heads[i]].key.Before(batches[best].items[heads[best]].key) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		current := batches[best].items[heads[best]]
		heads[best]++
		state.cursor[current.source] = current.key.ID
		if current.tx != nil && (typeFilter == "" || current.tx.Type == typeFilter) {
			state.page = append(state.page, *current.tx)
		}

		if batches[best].truncated && heads[best] == len(batches[best].items) {
			horizon = true
			break
		}
	}

	state.done = len(state.page) < limit && !horizon
	return state
}
