package domain

import (
	"encoding/json"
	"strings"
	"time"

	productdomain "github.com/smallbiznis/billingledger/internal/product/domain"
)

type TransactionType string

const (
	TransactionTypePurchase                 TransactionType = "purchase"
	TransactionTypeManualItemQuantityChange TransactionType = "manual-item-quantity-change"
	TransactionTypeSubscriptionRenewal      TransactionType = "subscription-renewal"
)

func ParseTransactionType(value string) (TransactionType, error) {
	switch t := TransactionType(strings.TrimSpace(value)); t {
	case TransactionTypePurchase, TransactionTypeManualItemQuantityChange, TransactionTypeSubscriptionRenewal:
		return t, nil
	default:
		return "", ErrInvalidTransactionType
	}
}

type CustomerType string

const (
	CustomerTypeUser   CustomerType = "user"
	CustomerTypeTeam   CustomerType = "team"
	CustomerTypeCustom CustomerType = "custom"
)

func ParseCustomerType(value string) (CustomerType, error) {
	switch t := CustomerType(strings.ToLower(strings.TrimSpace(value))); t {
	case CustomerTypeUser, CustomerTypeTeam, CustomerTypeCustom:
		return t, nil
	default:
		return "", ErrInvalidCustomerType
	}
}

// CustomerTypeFromStored converts the upper-case column value.
func CustomerTypeFromStored(value string) CustomerType {
	return CustomerType(strings.ToLower(value))
}

// Stored returns the column representation.
func (t CustomerType) Stored() string {
	return strings.ToUpper(string(t))
}

type EntryKind string

const (
	EntryKindProductGrant       EntryKind = "product_grant"
	EntryKindMoneyTransfer      EntryKind = "money_transfer"
	EntryKindItemQuantityChange EntryKind = "item_quantity_change"
)

// Entry is one line item of a Transaction: *ProductGrantEntry,
// *MoneyTransferEntry or *ItemQuantityChangeEntry.
type Entry interface {
	Kind() EntryKind
	isEntry()
}

// EntryBase carries the fields shared by every entry kind. A non-nil
// adjusted pair means the entry supersedes that entry of another transaction.
type EntryBase struct {
	AdjustedTransactionID *string      `json:"adjusted_transaction_id"`
	AdjustedEntryIndex    *int         `json:"adjusted_entry_index"`
	CustomerType          CustomerType `json:"customer_type"`
	CustomerID            string       `json:"customer_id"`
}

type ProductGrantEntry struct {
	EntryBase
	ProductID         *string                 `json:"product_id"`
	Product           *productdomain.Snapshot `json:"product"`
	PriceID           *string                 `json:"price_id"`
	Quantity          int64                   `json:"quantity"`
	SubscriptionID    *string                 `json:"subscription_id,omitempty"`
	OneTimePurchaseID *string                 `json:"one_time_purchase_id,omitempty"`
}

func (*ProductGrantEntry) Kind() EntryKind { return EntryKindProductGrant }
func (*ProductGrantEntry) isEntry()        {}

func (e *ProductGrantEntry) MarshalJSON() ([]byte, error) {
	type plain ProductGrantEntry
	return json.Marshal(struct {
		Type EntryKind `json:"type"`
		*plain
	}{EntryKindProductGrant, (*plain)(e)})
}

// MoneyTransferEntry records money charged. NetAmount is the amount retained
// after fees; without fee data it mirrors the USD charge.
type MoneyTransferEntry struct {
	EntryBase
	ChargedAmount map[string]string `json:"charged_amount"`
	NetAmount     map[string]string `json:"net_amount"`
}

func (*MoneyTransferEntry) Kind() EntryKind { return EntryKindMoneyTransfer }
func (*MoneyTransferEntry) isEntry()        {}

func (e *MoneyTransferEntry) MarshalJSON() ([]byte, error) {
	type plain MoneyTransferEntry
	return json.Marshal(struct {
		Type EntryKind `json:"type"`
		*plain
	}{EntryKindMoneyTransfer, (*plain)(e)})
}

type ItemQuantityChangeEntry struct {
	EntryBase
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

func (*ItemQuantityChangeEntry) Kind() EntryKind { return EntryKindItemQuantityChange }
func (*ItemQuantityChangeEntry) isEntry()        {}

func (e *ItemQuantityChangeEntry) MarshalJSON() ([]byte, error) {
	type plain ItemQuantityChangeEntry
	return json.Marshal(struct {
		Type EntryKind `json:"type"`
		*plain
	}{EntryKindItemQuantityChange, (*plain)(e)})
}

// AdjustmentRef points at the entry of a transaction that reverses or
// supersedes an entry of the referencing transaction.
type AdjustmentRef struct {
	TransactionID string `json:"transaction_id"`
	EntryIndex    int    `json:"entry_index"`
}

// Transaction is the read-only projection of one raw billing record.
type Transaction struct {
	ID          string
	Source      Source
	CreatedAt   time.Time
	EffectiveAt time.Time
	Type        TransactionType
	Entries     []Entry
	AdjustedBy  []AdjustmentRef
	TestMode    bool
}

// Key is the position of the transaction in the feed order.
func (t Transaction) Key() Pivot {
	return Pivot{CreatedAt: t.CreatedAt, ID: t.ID}
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	entries := t.Entries
	if entries == nil {
		entries = []Entry{}
	}
	adjustedBy := t.AdjustedBy
	if adjustedBy == nil {
		adjustedBy = []AdjustmentRef{}
	}
	return json.Marshal(struct {
		ID          string          `json:"id"`
		CreatedAt   int64           `json:"created_at"`
		EffectiveAt int64           `json:"effective_at"`
		Type        TransactionType `json:"type"`
		Entries     []Entry         `json:"entries"`
		AdjustedBy  []AdjustmentRef `json:"adjusted_by"`
		TestMode    bool            `json:"test_mode"`
	}{
		ID:          t.ID,
		CreatedAt:   t.CreatedAt.UnixMilli(),
		EffectiveAt: t.EffectiveAt.UnixMilli(),
		Type:        t.Type,
		Entries:     entries,
		AdjustedBy:  adjustedBy,
		TestMode:    t.TestMode,
	})
}
