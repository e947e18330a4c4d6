// Package file serves the product catalog from a JSON document held in memory.
package file

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"

	"github.com/xenking/soch-storefront/db"
	"github.com/xenking/soch-storefront/internal/domain/catalog"
)

var _ catalog.Repository = (*Catalog)(nil)

// Catalog implements catalog.Repository over a fixed product list.
type Catalog struct {
	products []catalog.Product
	byID     map[string]int
}

// New indexes products. Ids must be unique.
func New(products []catalog.Product) (*Catalog, error) {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		if _, dup := byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		byID[p.ID] = i
	}
	return &Catalog{products: products, byID: byID}, nil
}

// Open reads the catalog at path. Files ending in .gz are gunzipped.
func Open(path string) (_ *Catalog, rerr error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close catalog")
		}
	}()

	products, err := Read(f, filepath.Ext(path) == ".gz")
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return New(products)
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	products, err := Read(bytes.NewReader(db.Catalog), false)
	if err != nil {
		return nil, errors.Wrap(err, "embedded catalog")
	}
	return New(products)
}

// Read decodes a catalog document, optionally gzip-compressed.
func Read(r io.Reader, gzipped bool) ([]catalog.Product, error) {
	if gzipped {
		zr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return Decode(r)
}

// List returns every product in document order.
func (c *Catalog) List(_ context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

// GetByID returns a copy of the product with id.
func (c *Catalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	p := c.products[i]
	return &p, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
