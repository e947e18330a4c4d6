// Package selector turns a shopper's variant and quantity choices on a
// product page into a cart line item.
package selector

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/domain/catalog"
)

// ErrOutOfStock is returned by Build when the product cannot be ordered.
var ErrOutOfStock = errors.New("product is out of stock")

// MissingSelectionError lists the variant dimensions still to be chosen.
type MissingSelectionError struct {
	Dimensions []catalog.Dimension
}

func (e *MissingSelectionError) Error() string {
	names := make([]string, len(e.Dimensions))
	for i, d := range e.Dimensions {
		names[i] = string(d)
	}
	return "please select a " + strings.Join(names, " and ")
}

// InvalidOptionError indicates a value the product does not offer.
type InvalidOptionError struct {
	Dimension catalog.Dimension
	Value     string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("%s %q is not available for this product", e.Dimension, e.Value)
}

// Selection is the raw choice submitted from a product page.
type Selection struct {
	Size     string
	Color    string
	Volume   string
	Quantity int
}

// Selector tracks the choices made for one product. The zero quantity is
// never observable: a new Selector starts at cart.MinQuantity.
type Selector struct {
	product  *catalog.Product
	variant  cart.Variant
	quantity int
}

// New returns a Selector for p with nothing chosen and quantity 1.
func New(p *catalog.Product) *Selector {
	return &Selector{product: p, quantity: cart.MinQuantity}
}

// FromSelection applies sel to a fresh Selector. Empty fields are left
// unchosen; an out-of-range quantity is clamped.
func FromSelection(p *catalog.Product, sel Selection) (*Selector, error) {
	s := New(p)
	if sel.Size != "" {
		if err := s.ChooseSize(sel.Size); err != nil {
			return nil, err
		}
	}
	if sel.Color != "" {
		if err := s.ChooseColor(sel.Color); err != nil {
			return nil, err
		}
	}
	if sel.Volume != "" {
		if err := s.ChooseVolume(sel.Volume); err != nil {
			return nil, err
		}
	}
	if sel.Quantity != 0 {
		s.quantity = cart.ClampQuantity(sel.Quantity)
	}
	return s, nil
}

// ChooseSize selects an apparel size.
func (s *Selector) ChooseSize(size string) error {
	a, ok := s.product.Apparel()
	if !ok || !slices.Contains(a.Sizes, size) {
		return &InvalidOptionError{Dimension: catalog.DimensionSize, Value: size}
	}
	s.variant.Size = size
	return nil
}

// ChooseColor selects an apparel color.
func (s *Selector) ChooseColor(color string) error {
	a, ok := s.product.Apparel()
	if !ok || !slices.Contains(a.Colors, color) {
		return &InvalidOptionError{Dimension: catalog.DimensionColor, Value: color}
	}
	s.variant.Color = color
	return nil
}

// ChooseVolume selects a fragrance bottle size.
func (s *Selector) ChooseVolume(label string) error {
	if _, ok := s.product.VolumeByLabel(label); !ok {
		return &InvalidOptionError{Dimension: catalog.DimensionVolume, Value: label}
	}
	s.variant.Volume = label
	return nil
}

// Increment raises the quantity by one unless it is already at the maximum.
func (s *Selector) Increment() {
	s.SetQuantity(s.quantity + 1)
}

// Decrement lowers the quantity by one unless it is already at the minimum.
func (s *Selector) Decrement() {
	s.SetQuantity(s.quantity - 1)
}

// SetQuantity changes the quantity; values out of range are ignored.
func (s *Selector) SetQuantity(q int) {
	if cart.ValidQuantity(q) {
		s.quantity = q
	}
}

// Quantity returns the current stepper value.
func (s *Selector) Quantity() int {
	return s.quantity
}

// Variant returns the choices made so far.
func (s *Selector) Variant() cart.Variant {
	return s.variant
}

// Missing returns the required dimensions that have not been chosen.
func (s *Selector) Missing() []catalog.Dimension {
	var missing []catalog.Dimension
	for _, dim := range s.product.Dimensions() {
		var v string
		switch dim {
		case catalog.DimensionSize:
			v = s.variant.Size
		case catalog.DimensionColor:
			v = s.variant.Color
		case catalog.DimensionVolume:
			v = s.variant.Volume
		}
		if v == "" {
			missing = append(missing, dim)
		}
	}
	return missing
}

// UnitPrice resolves the price for the current choice. For fragrances it is
// the price of the chosen volume; ok is false until one is chosen.
func (s *Selector) UnitPrice() (price decimal.Decimal, ok bool) {
	switch d := s.product.Details.(type) {
	case catalog.Apparel:
		return d.Price, true
	case catalog.Fragrance:
		v, found := s.product.VolumeByLabel(s.variant.Volume)
		if !found {
			return decimal.Zero, false
		}
		return v.Price, true
	default:
		return decimal.Zero, false
	}
}

// Total is the price shown on the add button: unit price times quantity.
func (s *Selector) Total() decimal.Decimal {
	price, _ := s.UnitPrice()
	return price.Mul(decimal.NewFromInt(int64(s.quantity)))
}

// Build validates the choice and returns the line item to add to a cart.
func (s *Selector) Build() (cart.LineItem, error) {
	if missing := s.Missing(); len(missing) > 0 {
		return cart.LineItem{}, &MissingSelectionError{Dimensions: missing}
	}
	if !s.product.InStock {
		return cart.LineItem{}, ErrOutOfStock
	}

	price, ok := s.UnitPrice()
	if !ok {
		return cart.LineItem{}, errors.Errorf("no price for product %s", s.product.ID)
	}

	return cart.LineItem{
		ProductID: s.product.ID,
		Variant:   s.variant,
		Name:      s.product.Name,
		UnitPrice: price,
		Image:     s.product.DisplayImage(),
		Quantity:  s.quantity,
	}, nil
}
