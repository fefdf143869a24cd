// Package builder projects raw billing records into ledger transactions.
// Builders are pure: they never read storage and never mutate their input.
package builder

import (
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/billingledger/internal/currency"
	"github.com/smallbiznis/billingledger/internal/pricing"
	productdomain "github.com/smallbiznis/billingledger/internal/product/domain"
	"github.com/smallbiznis/billingledger/internal/transaction/domain"
	"gorm.io/datatypes"
)

var (
	ErrMissingSubscription = errors.New("missing_subscription")
	ErrNothingCharged      = errors.New("nothing_charged")
)

// RefundSuffix is appended to a record id to form the id of its refund.
const RefundSuffix = ":refund"

// Build dispatches record to the builder of its kind.
func Build(record domain.Record) (*domain.Transaction, error) {
	switch r := record.(type) {
	case *domain.Subscription:
		return Subscription(r)
	case *domain.ItemQuantityChange:
		return ItemQuantityChange(r), nil
	case *domain.OneTimePurchase:
		return OneTimePurchase(r)
	case *domain.SubscriptionInvoice:
		return SubscriptionRenewal(r)
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownRecord, record)
	}
}

type purchase struct {
	id             string
	customerID     string
	customerType   string
	productID      *string
	product        datatypes.JSON
	priceID        *string
	quantity       int64
	creationSource string
	refundedAt     *time.Time
	createdAt      time.Time
}

// Subscription builds the purchase transaction of a subscription.
func Subscription(s *domain.Subscription) (*domain.Transaction, error) {
	id := s.ID
	return buildPurchase(domain.SourceSubscriptions, purchase{
		id:             s.ID,
		customerID:     s.CustomerID,
		customerType:   s.CustomerType,
		productID:      s.ProductID,
		product:        s.Product,
		priceID:        s.PriceID,
		quantity:       s.Quantity,
		creationSource: s.CreationSource,
		refundedAt:     s.RefundedAt,
		createdAt:      s.CreatedAt,
	}, func(grant *domain.ProductGrantEntry) {
		grant.SubscriptionID = &id
	})
}

// OneTimePurchase builds the purchase transaction of a one-time purchase.
func OneTimePurchase(p *domain.OneTimePurchase) (*domain.Transaction, error) {
	id := p.ID
	return buildPurchase(domain.SourceOneTimePurchases, purchase{
		id:             p.ID,
		customerID:     p.CustomerID,
		customerType:   p.CustomerType,
		productID:      p.ProductID,
		product:        p.Product,
		priceID:        p.PriceID,
		quantity:       p.Quantity,
		creationSource: p.CreationSource,
		refundedAt:     p.RefundedAt,
		createdAt:      p.CreatedAt,
	}, func(grant *domain.ProductGrantEntry) {
		grant.OneTimePurchaseID = &id
	})
}

func buildPurchase(source domain.Source, p purchase, link func(*domain.ProductGrantEntry)) (*domain.Transaction, error) {
	snapshot, err := productdomain.ParseSnapshot(p.product)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", source, p.id, err)
	}

	charged, err := pricing.BuildChargedAmount(pricing.ResolveSelectedPrice(snapshot, p.priceID), p.quantity)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", source, p.id, err)
	}

	customer := customerBase(p.customerType, p.customerID)
	testMode := p.creationSource == domain.CreationSourceTestMode

	grant := &domain.ProductGrantEntry{
		EntryBase: customer,
		ProductID: p.productID,
		Product:   snapshot,
		PriceID:   p.priceID,
		Quantity:  p.quantity,
	}
	link(grant)

	entries := []domain.Entry{grant}
	if !testMode {
		if transfer := moneyTransfer(customer, charged); transfer != nil {
			entries = append(entries, transfer)
		}
	}

	tx := &domain.Transaction{
		ID:          p.id,
		Source:      source,
		CreatedAt:   p.createdAt,
		EffectiveAt: p.createdAt,
		Type:        domain.TransactionTypePurchase,
		Entries:     entries,
		AdjustedBy:  []domain.AdjustmentRef{},
		TestMode:    testMode,
	}
	if p.refundedAt != nil {
		tx.AdjustedBy = append(tx.AdjustedBy, domain.AdjustmentRef{
			TransactionID: RefundTransactionID(p.id),
			EntryIndex:    AdjustmentIndex(entries),
		})
	}
	return tx, nil
}

// ItemQuantityChange builds the single-entry transaction of a manual change.
func ItemQuantityChange(c *domain.ItemQuantityChange) *domain.Transaction {
	return &domain.Transaction{
		ID:          c.ID,
		Source:      domain.SourceItemQuantityChanges,
		CreatedAt:   c.CreatedAt,
		EffectiveAt: c.CreatedAt,
		Type:        domain.TransactionTypeManualItemQuantityChange,
		Entries: []domain.Entry{
			&domain.ItemQuantityChangeEntry{
				EntryBase: customerBase(c.CustomerType, c.CustomerID),
				ItemID:    c.ItemID,
				Quantity:  c.Quantity,
			},
		},
		AdjustedBy: []domain.AdjustmentRef{},
	}
}

// SubscriptionRenewal builds the renewal charge of an invoice from the
// subscription's current price and quantity.
func SubscriptionRenewal(inv *domain.SubscriptionInvoice) (*domain.Transaction, error) {
	sub := inv.Subscription
	if sub == nil {
		return nil, fmt.Errorf("%s %s: %w", domain.SourceSubscriptionInvoices, inv.ID, ErrMissingSubscription)
	}

	snapshot, err := productdomain.ParseSnapshot(sub.Product)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", domain.SourceSubscriptionInvoices, inv.ID, err)
	}
	charged, err := pricing.BuildChargedAmount(pricing.ResolveSelectedPrice(snapshot, sub.PriceID), sub.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", domain.SourceSubscriptionInvoices, inv.ID, err)
	}

	transfer := moneyTransfer(customerBase(sub.CustomerType, sub.CustomerID), charged)
	if transfer == nil {
		return nil, fmt.Errorf("%s %s: %w", domain.SourceSubscriptionInvoices, inv.ID, ErrNothingCharged)
	}

	effectiveAt := inv.CreatedAt
	if inv.PeriodStart != nil {
		effectiveAt = *inv.PeriodStart
	}

	return &domain.Transaction{
		ID:          inv.ID,
		Source:      domain.SourceSubscriptionInvoices,
		CreatedAt:   inv.CreatedAt,
		EffectiveAt: effectiveAt,
		Type:        domain.TransactionTypeSubscriptionRenewal,
		Entries:     []domain.Entry{transfer},
		AdjustedBy:  []domain.AdjustmentRef{},
	}, nil
}

// AdjustmentIndex is the entry a refund reverses: the first product grant,
// or 0 when there is none.
func AdjustmentIndex(entries []domain.Entry) int {
	for i, entry := range entries {
		if entry.Kind() == domain.EntryKindProductGrant {
			return i
		}
	}
	return 0
}

func RefundTransactionID(id string) string {
	return id + RefundSuffix
}

func customerBase(storedType, customerID string) domain.EntryBase {
	return domain.EntryBase{
		CustomerType: domain.CustomerTypeFromStored(storedType),
		CustomerID:   customerID,
	}
}

// moneyTransfer returns nil when nothing was charged. Net amount mirrors the
// USD charge until fees are recorded.
func moneyTransfer(customer domain.EntryBase, charged map[string]string) *domain.MoneyTransferEntry {
	if len(charged) == 0 {
		return nil
	}
	net := map[string]string{}
	if usd, ok := charged[currency.USD.Code]; ok {
		net[currency.USD.Code] = usd
	}
	return &domain.MoneyTransferEntry{
		EntryBase:     customer,
		ChargedAmount: charged,
		NetAmount:     net,
	}
}
