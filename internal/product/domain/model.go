// Package domain holds the immutable product snapshot embedded in billing records.
//
// A snapshot is copied into a subscription or purchase at write time, so the
// amounts shown for a historical record never follow later catalog edits.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
)

// IncludeByDefault is the sentinel stored in place of a price map for
// products granted to every customer without a purchase.
const IncludeByDefault = "include-by-default"

var ErrInvalidSnapshot = errors.New("invalid_product_snapshot")

// Price is the raw price object: currency codes mapped to amount strings, plus
// non-monetary descriptors such as "interval" and internal-only flags.
type Price map[string]any

// PriceSet is either the include-by-default sentinel or a map of price id to Price.
type PriceSet struct {
	IncludeByDefault bool
	Entries          map[string]Price
}

type IncludedItem struct {
	Quantity int64  `json:"quantity"`
	Repeat   any    `json:"repeat,omitempty"`
	Expires  string `json:"expires,omitempty"`
}

// Snapshot is a product definition as it existed when a billing event happened.
type Snapshot struct {
	DisplayName   string                  `json:"displayName"`
	CustomerType  string                  `json:"customerType,omitempty"`
	Stackable     bool                    `json:"stackable,omitempty"`
	ServerOnly    bool                    `json:"serverOnly,omitempty"`
	Prices        PriceSet                `json:"prices"`
	IncludedItems map[string]IncludedItem `json:"includedItems,omitempty"`
}

func (p PriceSet) MarshalJSON() ([]byte, error) {
	if p.IncludeByDefault {
		return json.Marshal(IncludeByDefault)
	}
	if p.Entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Entries)
}

func (p *PriceSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = PriceSet{}
		return nil
	}

	if trimmed[0] == '"' {
		var sentinel string
		if err := json.Unmarshal(trimmed, &sentinel); err != nil {
			return err
		}
		if sentinel != IncludeByDefault {
			return fmt.Errorf("%w: unknown prices value %q", ErrInvalidSnapshot, sentinel)
		}
		*p = PriceSet{IncludeByDefault: true}
		return nil
	}

	var entries map[string]Price
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return err
	}
	*p = PriceSet{Entries: entries}
	return nil
}

// ParseSnapshot decodes a stored snapshot column. An empty column yields nil.
func ParseSnapshot(raw datatypes.JSON) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(trimmed, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return &snapshot, nil
}

// Encode serializes a snapshot for storage.
func (s Snapshot) Encode() (datatypes.JSON, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
