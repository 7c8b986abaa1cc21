// Package product defines the catalog item model shared by the sync store,
// the query engine, and the cart/favorites stores.
package product

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ID is an opaque product identifier. The catalog has carried both numeric
// and string IDs over its lifetime, so IDs always canonicalize to a string
// and compare by string equality.
type ID string

// ParseID canonicalizes a raw identifier into an ID.
func ParseID(raw string) ID {
	return ID(strings.TrimSpace(raw))
}

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "decode id string")
		}
		*id = ParseID(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "decode id number")
		}
		*id = ParseID(n.String())
	default:
		return errors.Errorf("unexpected id type %q", d.Next())
	}
	return nil
}

// Option is a named product option, e.g. "Färg" -> ["Röd", "Blå"].
// The Cartesian product of all option values defines the variants.
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Product is a catalog item. Business fields are only ever written by the
// Catalog Source; the local mirror inserts, replaces, and evicts whole
// records but never edits them.
type Product struct {
	ID           ID               `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price"`
	ComparePrice *decimal.Decimal `json:"compare_price"`
	Stock        int              `json:"stock"`
	Category     string           `json:"category,omitempty"`
	Active       bool             `json:"is_active"`
	Options      []Option         `json:"options,omitempty"`
	Variants     map[string]int   `json:"variants,omitempty"`
	SizeGuideID  string           `json:"size_guide_id,omitempty"`
	CollectionID string           `json:"collection_id,omitempty"`
	Keywords     []string         `json:"keywords,omitempty"`
	Images       []string         `json:"images,omitempty"`
	Manufacturer string           `json:"manufacturer,omitempty"`
	CreatedAt    time.Time        `json:"created_at,omitzero"`
	UpdatedAt    time.Time        `json:"updated_at,omitzero"`

	// Fields below only appear in the legacy local dataset; the remote
	// catalog never sends them. Tag casing matches that dataset.
	Gender  string  `json:"gender,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
	InStock *bool   `json:"inStock,omitempty"`
}

// FirstImage returns the first image URL, or "" when the product has none.
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Available reports whether the product can be purchased. Legacy records
// carry an explicit boolean; remote records are judged by stock count.
func (p Product) Available() bool {
	if p.InStock != nil {
		return *p.InStock
	}
	return p.Stock > 0
}

// VariantStock returns the stock for the joined option-value string,
// e.g. "Röd / M". Unknown variants report zero stock.
func (p Product) VariantStock(variant string) int {
	return p.Variants[variant]
}

// JoinVariant builds the variant map key from selected option values.
func JoinVariant(values ...string) string {
	return strings.Join(values, " / ")
}
