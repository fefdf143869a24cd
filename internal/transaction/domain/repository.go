package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// FetchFilter bounds one source query. CustomerType is the stored
// upper-case value or empty; Before is exclusive.
type FetchFilter struct {
	CustomerType string
	Before       *Pivot
	Limit        int
}

type Repository interface {
	ListSubscriptions(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter FetchFilter) ([]*Subscription, error)
	ListItemQuantityChanges(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter FetchFilter) ([]*ItemQuantityChange, error)
	ListOneTimePurchases(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter FetchFilter) ([]*OneTimePurchase, error)
	ListSubscriptionInvoices(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter FetchFilter) ([]*SubscriptionInvoice, error)

	// FindPivot returns nil, nil when the record does not exist.
	FindPivot(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, source Source, id string) (*Pivot, error)

	InsertSubscription(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	InsertItemQuantityChange(ctx context.Context, db *gorm.DB, change *ItemQuantityChange) error
	InsertOneTimePurchase(ctx context.Context, db *gorm.DB, purchase *OneTimePurchase) error
	InsertSubscriptionInvoice(ctx context.Context, db *gorm.DB, invoice *SubscriptionInvoice) error
}
