// Package catalog holds the read-only product records the storefront sells.
package catalog

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Kind discriminates the Details union.
type Kind string

const (
	// KindApparel is a clothing item sold at a fixed price per size and color.
	KindApparel Kind = "apparel"
	// KindFragrance is a perfume priced per bottle volume.
	KindFragrance Kind = "fragrance"
)

// Dimension names a variant attribute a shopper has to choose.
type Dimension string

const (
	DimensionSize   Dimension = "size"
	DimensionColor  Dimension = "color"
	DimensionVolume Dimension = "volume"
)

// Product represents a catalog entry available for browsing.
type Product struct {
	ID          string
	Name        string
	Category    string
	SubCategory string
	Description string
	Images      []string
	InStock     bool
	Details     Details
}

// Details carries the category-specific part of a product. It is implemented
// by Apparel and Fragrance only.
type Details interface {
	Kind() Kind
	isDetails()
}

// Apparel holds the fields of a clothing product.
type Apparel struct {
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Sizes         []string
	Colors        []string
	Fabric        string
}

func (Apparel) Kind() Kind { return KindApparel }
func (Apparel) isDetails() {}

// Fragrance holds the fields of a perfume product.
type Fragrance struct {
	Volumes []Volume
	Notes   Notes
}

func (Fragrance) Kind() Kind { return KindFragrance }
func (Fragrance) isDetails() {}

// Volume is one purchasable bottle size with its own price.
type Volume struct {
	Label         string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
}

// Notes describes the fragrance pyramid.
type Notes struct {
	Top   string
	Heart string
	Base  string
}

// volumeOrder ranks the known bottle sizes; unknown labels sort last.
var volumeOrder = map[string]int{
	"10ml": 1,
	"30ml": 2,
	"50ml": 3,
}

// Kind returns the product kind, or an empty Kind when Details is unset.
func (p *Product) Kind() Kind {
	if p.Details == nil {
		return ""
	}
	return p.Details.Kind()
}

// Apparel returns the apparel details when the product is clothing.
func (p *Product) Apparel() (Apparel, bool) {
	a, ok := p.Details.(Apparel)
	return a, ok
}

// Fragrance returns the fragrance details when the product is a perfume.
func (p *Product) Fragrance() (Fragrance, bool) {
	f, ok := p.Details.(Fragrance)
	return f, ok
}

// Dimensions lists the variant attributes that must be selected before the
// product can be added to a cart.
func (p *Product) Dimensions() []Dimension {
	switch d := p.Details.(type) {
	case Apparel:
		var dims []Dimension
		if len(d.Sizes) > 0 {
			dims = append(dims, DimensionSize)
		}
		if len(d.Colors) > 0 {
			dims = append(dims, DimensionColor)
		}
		return dims
	case Fragrance:
		return []Dimension{DimensionVolume}
	default:
		return nil
	}
}

// SortedVolumes returns the fragrance volumes from the smallest bottle to the
// largest. It returns nil for non-fragrance products.
func (p *Product) SortedVolumes() []Volume {
	f, ok := p.Fragrance()
	if !ok {
		return nil
	}
	out := make([]Volume, len(f.Volumes))
	copy(out, f.Volumes)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Label) < rank(out[j].Label)
	})
	return out
}

func rank(label string) int {
	if r, ok := volumeOrder[label]; ok {
		return r
	}
	return len(volumeOrder) + 1
}

// VolumeByLabel looks up a fragrance volume by its label.
func (p *Product) VolumeByLabel(label string) (Volume, bool) {
	f, ok := p.Fragrance()
	if !ok {
		return Volume{}, false
	}
	for _, v := range f.Volumes {
		if v.Label == label {
			return v, true
		}
	}
	return Volume{}, false
}

// DisplayPrice is the price shown on listing cards: the apparel price, or the
// price of the smallest fragrance bottle.
func (p *Product) DisplayPrice() decimal.Decimal {
	price, _ := p.displayPrices()
	return price
}

// DiscountPercent returns the markdown of the display price as a whole
// percentage. It is zero when the product is not discounted.
func (p *Product) DiscountPercent() int64 {
	price, original := p.displayPrices()
	if !original.GreaterThan(price) {
		return 0
	}
	pct := original.Sub(price).Div(original).Mul(decimal.NewFromInt(100))
	return pct.Round(0).IntPart()
}

func (p *Product) displayPrices() (price, original decimal.Decimal) {
	switch d := p.Details.(type) {
	case Apparel:
		return d.Price, d.OriginalPrice
	case Fragrance:
		vols := p.SortedVolumes()
		if len(vols) == 0 {
			return decimal.Zero, decimal.Zero
		}
		return vols[0].Price, vols[0].OriginalPrice
	default:
		return decimal.Zero, decimal.Zero
	}
}

// DisplayImage returns the image shown on listing cards. Fragrances show the
// last image, which is the largest bottle.
func (p *Product) DisplayImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	if p.Kind() == KindFragrance {
		return p.Images[len(p.Images)-1]
	}
	return p.Images[0]
}

// Filter narrows a product listing. Empty fields match everything.
type Filter struct {
	Category    string
	SubCategory string
}

// Match reports whether p passes the filter.
func (f Filter) Match(p *Product) bool {
	if f.Category != "" && f.Category != p.Category {
		return false
	}
	if f.SubCategory != "" && f.SubCategory != p.SubCategory {
		return false
	}
	return true
}

// Apply returns the products that pass the filter, preserving order.
func (f Filter) Apply(products []Product) []Product {
	if f == (Filter{}) {
		return products
	}
	out := make([]Product, 0, len(products))
	for i := range products {
		if f.Match(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
