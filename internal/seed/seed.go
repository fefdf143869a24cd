// Package seed writes a demo billing history for one tenant across every
// ledger source.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/billingledger/internal/clock"
	productdomain "github.com/smallbiznis/billingledger/internal/product/domain"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"github.com/smallbiznis/billingledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultCount = 25
	MaxCount     = 10000

	creationSourcePurchasePage = "PURCHASE_PAGE"
	creationSourceAPIGrant     = "API_GRANT"
	itemAPICredits             = "api-credits"
)

var ErrInvalidCount = errors.New("invalid_seed_count")

// namespace keeps record ids stable across runs so reseeding is idempotent.
var namespace = uuid.MustParse("7f4c1d2e-9b8a-4c3d-8e7f-6a5b4c3d2e1f")

var customerTypes = []string{"USER", "TEAM", "CUSTOM"}

type Options struct {
	TenantID snowflake.ID
	Count    int
}

// Result counts the rows written per source. Skipped counts rows that
// already existed.
type Result struct {
	TenantID             snowflake.ID
	Subscriptions        int
	OneTimePurchases     int
	ItemQuantityChanges  int
	SubscriptionInvoices int
	Skipped              int
}

func (r Result) Total() int {
	return r.Subscriptions + r.OneTimePurchases + r.ItemQuantityChanges + r.SubscriptionInvoices
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Repo  domain.Repository
	Clock clock.Clock
	Node  *snowflake.Node
	Log   *zap.Logger
}

type Seeder struct {
	db    *gorm.DB
	repo  domain.Repository
	clock clock.Clock
	node  *snowflake.Node
	log   *zap.Logger
}

func New(p Params) *Seeder {
	return &Seeder{
		db:    p.DB,
		repo:  p.Repo,
		clock: p.Clock,
		node:  p.Node,
		log:   p.Log.Named("seed"),
	}
}

type catalogProduct struct {
	id       string
	priceID  string
	snapshot datatypes.JSON
}

// Seed writes opts.Count records per purchase source plus matching renewals
// and item quantity changes. A zero TenantID generates a new tenant.
func (s *Seeder) Seed(ctx context.Context, opts Options) (Result, error) {
	if opts.Count == 0 {
		opts.Count = DefaultCount
	}
	if opts.Count < 0 || opts.Count > MaxCount {
		return Result{}, ErrInvalidCount
	}
	if opts.TenantID == 0 {
		if s.node == nil {
			return Result{}, errors.New("seed tenant id is required")
		}
		opts.TenantID = s.node.Generate()
	}

	catalog, err := buildCatalog()
	if err != nil {
		return Result{}, err
	}

	result := Result{TenantID: opts.TenantID}
	base := s.clock.Now().Add(-time.Duration(opts.Count) * 4 * time.Hour)
	log := s.log.With(zap.String("tenant_id", opts.TenantID.String()))

	for i := 0; i < opts.Count; i++ {
		createdAt := base.Add(time.Duration(i) * 4 * time.Hour)
		customerType := customerTypes[i%len(customerTypes)]
		customerID := fmt.Sprintf("cus_%03d", i%7)

		product := catalog[i%2]
		sub := &domain.Subscription{
			ID:             recordID(opts.TenantID, domain.SourceSubscriptions, i),
			TenantID:       opts.TenantID,
			CustomerID:     customerID,
			CustomerType:   customerType,
			ProductID:      stringPtr(product.id),
			Product:        product.snapshot,
			PriceID:        stringPtr(product.priceID),
			Quantity:       int64(1 + i%3),
			CreationSource: creationSourcePurchasePage,
			CreatedAt:      createdAt,
		}
		if i%7 == 3 {
			sub.CreationSource = domain.CreationSourceTestMode
		}
		if i%5 == 4 {
			refundedAt := createdAt.Add(time.Hour)
			sub.RefundedAt = &refundedAt
		}
		if err := s.insert(ctx, &result, &result.Subscriptions, func() error {
			return s.repo.InsertSubscription(ctx, s.db, sub)
		}); err != nil {
			return result, err
		}

		if sub.CreationSource != domain.CreationSourceTestMode {
			periodStart := createdAt.Add(2 * time.Hour)
			invoice := &domain.SubscriptionInvoice{
				ID:             recordID(opts.TenantID, domain.SourceSubscriptionInvoices, i),
				TenantID:       opts.TenantID,
				SubscriptionID: sub.ID,
				PeriodStart:    &periodStart,
				CreatedAt:      periodStart,
			}
			if err := s.insert(ctx, &result, &result.SubscriptionInvoices, func() error {
				return s.repo.InsertSubscriptionInvoice(ctx, s.db, invoice)
			}); err != nil {
				return result, err
			}
		}

		credits := catalog[2]
		purchase := &domain.OneTimePurchase{
			ID:             recordID(opts.TenantID, domain.SourceOneTimePurchases, i),
			TenantID:       opts.TenantID,
			CustomerID:     customerID,
			CustomerType:   customerType,
			ProductID:      stringPtr(credits.id),
			Product:        credits.snapshot,
			PriceID:        stringPtr(credits.priceID),
			Quantity:       int64(1 + i%4),
			CreationSource: creationSourcePurchasePage,
			CreatedAt:      createdAt,
		}
		if i%4 == 1 {
			purchase.CreationSource = creationSourceAPIGrant
			purchase.CreatedAt = createdAt.Add(time.Hour)
		}
		if i%6 == 5 {
			refundedAt := purchase.CreatedAt.Add(30 * time.Minute)
			purchase.RefundedAt = &refundedAt
		}
		if err := s.insert(ctx, &result, &result.OneTimePurchases, func() error {
			return s.repo.InsertOneTimePurchase(ctx, s.db, purchase)
		}); err != nil {
			return result, err
		}

		quantity := int64(100)
		if i%3 == 2 {
			quantity = -25
		}
		change := &domain.ItemQuantityChange{
			ID:           recordID(opts.TenantID, domain.SourceItemQuantityChanges, i),
			TenantID:     opts.TenantID,
			CustomerID:   customerID,
			CustomerType: customerType,
			ItemID:       itemAPICredits,
			Quantity:     quantity,
			CreatedAt:    createdAt.Add(3 * time.Hour),
		}
		if err := s.insert(ctx, &result, &result.ItemQuantityChanges, func() error {
			return s.repo.InsertItemQuantityChange(ctx, s.db, change)
		}); err != nil {
			return result, err
		}
	}

	log.Info("seeded ledger records",
		zap.Int("subscriptions", result.Subscriptions),
		zap.Int("one_time_purchases", result.OneTimePurchases),
		zap.Int("item_quantity_changes", result.ItemQuantityChanges),
		zap.Int("subscription_invoices", result.SubscriptionInvoices),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Seeder) insert(ctx context.Context, result *Result, counter *int, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn()
	switch {
	case err == nil:
		*counter++
		return nil
	case db.IsDuplicateKeyErr(err):
		result.Skipped++
		return nil
	default:
		return err
	}
}

func recordID(tenantID snowflake.ID, source domain.Source, i int) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s/%s/%d", tenantID, source, i))).String()
}

func buildCatalog() ([]catalogProduct, error) {
	defs := []struct {
		snapshot productdomain.Snapshot
		priceKey string
	}{
		{
			priceKey: "monthly",
			snapshot: productdomain.Snapshot{
				DisplayName:  "Starter",
				CustomerType: "user",
				Prices: productdomain.PriceSet{Entries: map[string]productdomain.Price{
					"monthly": {"USD": "9.99", "EUR": "9.50", "interval": []any{1, "month"}},
				}},
			},
		},
		{
			priceKey: "monthly",
			snapshot: productdomain.Snapshot{
				DisplayName:  "Pro Team",
				CustomerType: "team",
				Prices: productdomain.PriceSet{Entries: map[string]productdomain.Price{
					"monthly":  {"USD": "49", "interval": []any{1, "month"}},
					"yearly":   {"USD": "490", "interval": []any{1, "year"}},
					"internal": {"USD": "0", "serverOnly": true},
				}},
				IncludedItems: map[string]productdomain.IncludedItem{
					itemAPICredits: {Quantity: 1000, Repeat: []any{1, "month"}, Expires: "when-repeated"},
				},
			},
		},
		{
			priceKey: "pack",
			snapshot: productdomain.Snapshot{
				DisplayName: "API Credits Pack",
				Stackable:   true,
				Prices: productdomain.PriceSet{Entries: map[string]productdomain.Price{
					"pack": {"USD": "5", "GBP": "4.25"},
				}},
				IncludedItems: map[string]productdomain.IncludedItem{
					itemAPICredits: {Quantity: 500},
				},
			},
		},
	}

	catalog := make([]catalogProduct, 0, len(defs))
	for _, def := range defs {
		raw, err := def.snapshot.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", def.snapshot.DisplayName, err)
		}
		catalog = append(catalog, catalogProduct{
			id:       slug.Make(def.snapshot.DisplayName),
			priceID:  def.priceKey,
			snapshot: raw,
		})
	}
	return catalog, nil
}

func stringPtr(v string) *string {
	return &v
}
