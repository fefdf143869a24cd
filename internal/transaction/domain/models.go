package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CreationSourceTestMode marks records created from a test-mode checkout.
const CreationSourceTestMode = "TEST_MODE"

// Record is one raw billing row read from a source table.
// The set of implementations is closed to this package.
type Record interface {
	Source() Source
	Key() Pivot
	sealed()
}

// Subscription is a row of ledger_subscriptions. CustomerType is stored
// upper-case (USER, TEAM, CUSTOM).
type Subscription struct {
	ID             string         `gorm:"primaryKey;type:varchar(128)" json:"id"`
	TenantID       snowflake.ID   `gorm:"primaryKey" json:"tenant_id"`
	CustomerID     string         `gorm:"not null" json:"customer_id"`
	CustomerType   string         `gorm:"not null;index" json:"customer_type"`
	ProductID      *string        `json:"product_id,omitempty"`
	Product        datatypes.JSON `json:"product"`
	PriceID        *string        `json:"price_id,omitempty"`
	Quantity       int64          `gorm:"not null;default:1" json:"quantity"`
	CreationSource string         `gorm:"not null" json:"creation_source"`
	RefundedAt     *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Subscription) TableName() string { return "ledger_subscriptions" }

func (s *Subscription) Source() Source { return SourceSubscriptions }
func (s *Subscription) Key() Pivot     { return Pivot{CreatedAt: s.CreatedAt, ID: s.ID} }
func (s *Subscription) sealed()        {}

// OneTimePurchase is a row of ledger_one_time_purchases.
type OneTimePurchase struct {
	ID             string         `gorm:"primaryKey;type:varchar(128)" json:"id"`
	TenantID       snowflake.ID   `gorm:"primaryKey" json:"tenant_id"`
	CustomerID     string         `gorm:"not null" json:"customer_id"`
	CustomerType   string         `gorm:"not null;index" json:"customer_type"`
	ProductID      *string        `json:"product_id,omitempty"`
	Product        datatypes.JSON `json:"product"`
	PriceID        *string        `json:"price_id,omitempty"`
	Quantity       int64          `gorm:"not null;default:1" json:"quantity"`
	CreationSource string         `gorm:"not null" json:"creation_source"`
	RefundedAt     *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (OneTimePurchase) TableName() string { return "ledger_one_time_purchases" }

func (p *OneTimePurchase) Source() Source { return SourceOneTimePurchases }
func (p *OneTimePurchase) Key() Pivot     { return Pivot{CreatedAt: p.CreatedAt, ID: p.ID} }
func (p *OneTimePurchase) sealed()        {}

// ItemQuantityChange is a manual grant or revocation of item quantity.
type ItemQuantityChange struct {
	ID           string       `gorm:"primaryKey;type:varchar(128)" json:"id"`
	TenantID     snowflake.ID `gorm:"primaryKey" json:"tenant_id"`
	CustomerID   string       `gorm:"not null" json:"customer_id"`
	CustomerType string       `gorm:"not null;index" json:"customer_type"`
	ItemID       string       `gorm:"not null" json:"item_id"`
	Quantity     int64        `gorm:"not null" json:"quantity"`
	CreatedAt    time.Time    `gorm:"not null;index" json:"created_at"`
}

func (ItemQuantityChange) TableName() string { return "ledger_item_quantity_changes" }

func (c *ItemQuantityChange) Source() Source { return SourceItemQuantityChanges }
func (c *ItemQuantityChange) Key() Pivot     { return Pivot{CreatedAt: c.CreatedAt, ID: c.ID} }
func (c *ItemQuantityChange) sealed()        {}

// SubscriptionInvoice is a renewal invoice of a subscription. Subscription is
// populated by the repository from a join and is nil only for orphaned rows.
type SubscriptionInvoice struct {
	ID             string        `gorm:"primaryKey;type:varchar(128)" json:"id"`
	TenantID       snowflake.ID  `gorm:"primaryKey" json:"tenant_id"`
	SubscriptionID string        `gorm:"not null;index" json:"subscription_id"`
	PeriodStart    *time.Time    `json:"period_start,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;index" json:"created_at"`
	Subscription   *Subscription `gorm:"-" json:"subscription,omitempty"`
}

func (SubscriptionInvoice) TableName() string { return "ledger_subscription_invoices" }

func (i *SubscriptionInvoice) Source() Source { return SourceSubscriptionInvoices }
func (i *SubscriptionInvoice) Key() Pivot     { return Pivot{CreatedAt: i.CreatedAt, ID: i.ID} }
func (i *SubscriptionInvoice) sealed()        {}

// Pivot is the ordering key of a record: created_at desc, then id desc.
type Pivot struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether p sorts ahead of other in the feed order.
func (p Pivot) Before(other Pivot) bool {
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.After(other.CreatedAt)
	}
	return p.ID > other.ID
}
