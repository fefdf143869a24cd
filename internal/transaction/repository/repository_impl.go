package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListSubscriptions(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.FetchFilter) ([]*domain.Subscription, error) {
	var items []*domain.Subscription
	stmt := db.WithContext(ctx).Model(&domain.Subscription{})
	err := applyFetchFilter(stmt, "", tenantID, filter).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListItemQuantityChanges(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.FetchFilter) ([]*domain.ItemQuantityChange, error) {
	var items []*domain.ItemQuantityChange
	stmt := db.WithContext(ctx).Model(&domain.ItemQuantityChange{})
	err := applyFetchFilter(stmt, "", tenantID, filter).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListOneTimePurchases(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.FetchFilter) ([]*domain.OneTimePurchase, error) {
	var items []*domain.OneTimePurchase
	stmt := db.WithContext(ctx).Model(&domain.OneTimePurchase{})
	err := applyFetchFilter(stmt, "", tenantID, filter).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type invoiceRow struct {
	ID                string
	TenantID          snowflake.ID
	SubscriptionID    string
	PeriodStart       *time.Time
	CreatedAt         time.Time
	SubID             *string
	SubCustomerID     *string
	SubCustomerType   *string
	SubProductID      *string
	SubProduct        *string
	SubPriceID        *string
	SubQuantity       *int64
	SubCreationSource *string
	SubRefundedAt     *time.Time
	SubCreatedAt      *time.Time
}

// ListSubscriptionInvoices joins every invoice with its subscription. The
// customer type filter applies to the subscription's customer.
func (r *repo) ListSubscriptionInvoices(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.FetchFilter) ([]*domain.SubscriptionInvoice, error) {
	var rows []invoiceRow
	stmt := db.WithContext(ctx).
		Table("ledger_subscription_invoices AS i").
		Select(`i.id, i.tenant_id, i.subscription_id, i.period_start, i.created_at,
			s.id AS sub_id, s.customer_id AS sub_customer_id, s.customer_type AS sub_customer_type,
			s.product_id AS sub_product_id, s.product AS sub_product, s.price_id AS sub_price_id,
			s.quantity AS sub_quantity, s.creation_source AS sub_creation_source,
			s.refunded_at AS sub_refunded_at, s.created_at AS sub_created_at`).
		Joins("LEFT JOIN ledger_subscriptions AS s ON s.tenant_id = i.tenant_id AND s.id = i.subscription_id")

	customerType := filter.CustomerType
	filter.CustomerType = ""
	if customerType != "" {
		stmt = stmt.Where("s.customer_type = ?", customerType)
	}

	err := applyFetchFilter(stmt, "i.", tenantID, filter).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]*domain.SubscriptionInvoice, 0, len(rows))
	for _, row := range rows {
		invoice := &domain.SubscriptionInvoice{
			ID:             row.ID,
			TenantID:       row.TenantID,
			SubscriptionID: row.SubscriptionID,
			PeriodStart:    row.PeriodStart,
			CreatedAt:      row.CreatedAt,
		}
		if row.SubID != nil {
			invoice.Subscription = &domain.Subscription{
				ID:             *row.SubID,
				TenantID:       row.TenantID,
				CustomerID:     deref(row.SubCustomerID),
				CustomerType:   deref(row.SubCustomerType),
				ProductID:      row.SubProductID,
				Product:        datatypes.JSON(deref(row.SubProduct)),
				PriceID:        row.SubPriceID,
				CreationSource: deref(row.SubCreationSource),
				RefundedAt:     row.SubRefundedAt,
			}
			if row.SubQuantity != nil {
				invoice.Subscription.Quantity = *row.SubQuantity
			}
			if row.SubCreatedAt != nil {
				invoice.Subscription.CreatedAt = *row.SubCreatedAt
			}
		}
		items = append(items, invoice)
	}
	return items, nil
}

func (r *repo) FindPivot(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, source domain.Source, id string) (*domain.Pivot, error) {
	table, err := tableOf(source)
	if err != nil {
		return nil, err
	}

	var row struct {
		ID        string
		CreatedAt time.Time
	}
	err = db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id, created_at FROM %s WHERE tenant_id = ? AND id = ? LIMIT 1`, table),
		tenantID,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &domain.Pivot{CreatedAt: row.CreatedAt, ID: row.ID}, nil
}

func (r *repo) InsertSubscription(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) InsertItemQuantityChange(ctx context.Context, db *gorm.DB, change *domain.ItemQuantityChange) error {
	return db.WithContext(ctx).Create(change).Error
}

func (r *repo) InsertOneTimePurchase(ctx context.Context, db *gorm.DB, purchase *domain.OneTimePurchase) error {
	return db.WithContext(ctx).Create(purchase).Error
}

func (r *repo) InsertSubscriptionInvoice(ctx context.Context, db *gorm.DB, invoice *domain.SubscriptionInvoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

// applyFetchFilter scopes stmt to the tenant, the customer type and the
// keyset window strictly after filter.Before, newest first.
func applyFetchFilter(stmt *gorm.DB, prefix string, tenantID snowflake.ID, filter domain.FetchFilter) *gorm.DB {
	stmt = stmt.Where(prefix+"tenant_id = ?", tenantID)
	if filter.CustomerType != "" {
		stmt = stmt.Where(prefix+"customer_type = ?", filter.CustomerType)
	}
	if filter.Before != nil {
		stmt = stmt.Where(
			fmt.Sprintf("(%[1]screated_at < ? OR (%[1]screated_at = ? AND %[1]sid < ?))", prefix),
			filter.Before.CreatedAt,
			filter.Before.CreatedAt,
			filter.Before.ID,
		)
	}
	stmt = stmt.Order(prefix + "created_at desc").Order(prefix + "id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	return stmt
}

func tableOf(source domain.Source) (string, error) {
	switch source {
	case domain.SourceSubscriptions:
		return domain.Subscription{}.TableName(), nil
	case domain.SourceItemQuantityChanges:
		return domain.ItemQuantityChange{}.TableName(), nil
	case domain.SourceOneTimePurchases:
		return domain.OneTimePurchase{}.TableName(), nil
	case domain.SourceSubscriptionInvoices:
		return domain.SubscriptionInvoice{}.TableName(), nil
	default:
		return "", fmt.Errorf("%w: source %d", domain.ErrUnknownRecord, int(source))
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
