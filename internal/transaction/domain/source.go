package domain

// Source identifies one of the four billing tables merged into the feed.
// The numeric order is the position of the source in a composite cursor.
type Source int

const (
	SourceSubscriptions Source = iota
	SourceItemQuantityChanges
	SourceOneTimePurchases
	SourceSubscriptionInvoices
)

// SourceCount is the number of merged sources.
const SourceCount = 4

// Sources lists every source in cursor order.
var Sources = [SourceCount]Source{
	SourceSubscriptions,
	SourceItemQuantityChanges,
	SourceOneTimePurchases,
	SourceSubscriptionInvoices,
}

func (s Source) String() string {
	switch s {
	case SourceSubscriptions:
		return "subscriptions"
	case SourceItemQuantityChanges:
		return "item_quantity_changes"
	case SourceOneTimePurchases:
		return "one_time_purchases"
	case SourceSubscriptionInvoices:
		return "subscription_invoices"
	default:
		return "unknown"
	}
}

// TransactionType is the single transaction type produced by the source.
func (s Source) TransactionType() TransactionType {
	switch s {
	case SourceItemQuantityChanges:
		return TransactionTypeManualItemQuantityChange
	case SourceSubscriptionInvoices:
		return TransactionTypeSubscriptionRenewal
	default:
		return TransactionTypePurchase
	}
}
