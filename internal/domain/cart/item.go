// Package cart implements the per-session shopping cart: the line items a
// shopper selected and the visibility of the cart drawer.
package cart

import (
	"encoding/base64"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	// MinQuantity is the smallest quantity a line item can hold.
	MinQuantity = 1
	// MaxQuantity is the largest quantity a line item can hold.
	MaxQuantity = 10
)

// ErrInvalidKey is returned by ParseKey for malformed keys.
var ErrInvalidKey = errors.New("invalid line item key")

// Variant is the set of attributes that distinguish otherwise identical
// catalog entries. Every attribute takes part in line identity.
type Variant struct {
	Size   string
	Color  string
	Volume string
}

// IsZero reports whether no attribute is set.
func (v Variant) IsZero() bool {
	return v == Variant{}
}

// String renders the variant for humans, e.g. "Size: M, Color: Navy Blue".
func (v Variant) String() string {
	var parts []string
	if v.Size != "" {
		parts = append(parts, "Size: "+v.Size)
	}
	if v.Volume != "" {
		parts = append(parts, "Volume: "+v.Volume)
	}
	if v.Color != "" {
		parts = append(parts, "Color: "+v.Color)
	}
	return strings.Join(parts, ", ")
}

// Key identifies a line item. At most one line exists per key.
type Key struct {
	ProductID string
	Variant   Variant
}

const keySep = "\x1f"

// String returns an opaque URL-safe encoding of the key.
func (k Key) String() string {
	raw := strings.Join([]string{k.ProductID, k.Variant.Size, k.Variant.Color, k.Variant.Volume}, keySep)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseKey decodes a key produced by Key.String.
func ParseKey(s string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Key{}, errors.Wrap(ErrInvalidKey, err.Error())
	}
	parts := strings.Split(string(raw), keySep)
	if len(parts) != 4 || parts[0] == "" {
		return Key{}, ErrInvalidKey
	}
	return Key{
		ProductID: parts[0],
		Variant:   Variant{Size: parts[1], Color: parts[2], Volume: parts[3]},
	}, nil
}

// LineItem is one row of the cart. Name, UnitPrice and Image are a snapshot
// of the catalog entry taken when the item was added.
type LineItem struct {
	ProductID string
	Variant   Variant
	Name      string
	UnitPrice decimal.Decimal
	Image     string
	Quantity  int
}

// Key returns the identity of the line.
func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, Variant: i.Variant}
}

// Total returns UnitPrice * Quantity.
func (i LineItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ValidQuantity reports whether q lies within [MinQuantity, MaxQuantity].
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

// ClampQuantity forces q into [MinQuantity, MaxQuantity].
func ClampQuantity(q int) int {
	return max(MinQuantity, min(q, MaxQuantity))
}
