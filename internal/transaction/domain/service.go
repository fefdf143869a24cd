package domain

import (
	"context"
	"errors"
	"fmt"
)

const (
	MinLimit     = 1
	MaxLimit     = 200
	DefaultLimit = 50
)

type ListTransactionsRequest struct {
	Cursor       string
	Limit        int
	Type         string
	CustomerType string
}

type ListTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
	NextCursor   *string       `json:"next_cursor"`
}

type Service interface {
	ListTransactions(context.Context, ListTransactionsRequest) (ListTransactionsResponse, error)
}

var (
	ErrInvalidOrganization    = errors.New("invalid_organization")
	ErrMalformedCursor        = errors.New("malformed_cursor")
	ErrInvalidLimit           = errors.New("invalid_limit")
	ErrInvalidTransactionType = errors.New("invalid_transaction_type")
	ErrInvalidCustomerType    = errors.New("invalid_customer_type")
	ErrSourceFetch            = errors.New("source_fetch_failed")
	ErrUnknownRecord          = errors.New("unknown_record")
)

// SourceFetchError reports a failed or timed out query against one source.
// It matches ErrSourceFetch under errors.Is.
type SourceFetchError struct {
	Source Source
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", ErrSourceFetch, e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

func (e *SourceFetchError) Is(target error) bool { return target == ErrSourceFetch }
