package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/soch-storefront/internal/domain/catalog"
)

const sample = `[
  {"id": 7, "name": "Afsanay", "category": "Women", "images": ["a.jpg"],
   "price": 4999, "originalPrice": "6249.50", "sizes": ["S", "M"], "colors": ["Ivory"],
   "fabric": "Lawn", "rating": 4.5},
  {"id": "roselina", "name": "Roselina", "category": "Fragrances", "inStock": false,
   "image": "r.png",
   "volumes": [{"size": "50ml", "price": 4500}, {"label": "10ml", "price": "1200", "originalPrice": null}],
   "notes": {"top": "Bergamot", "middle": "Rose", "base": "Musk"}}
]`

func TestDecode(t *testing.T) {
	products, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, products, 2)

	a := products[0]
	assert.Equal(t, "7", a.ID)
	assert.True(t, a.InStock, "in stock by default")
	assert.Equal(t, catalog.KindApparel, a.Kind())
	apparel, ok := a.Apparel()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(4999).Equal(apparel.Price))
	assert.True(t, decimal.RequireFromString("6249.5").Equal(apparel.OriginalPrice))
	assert.Equal(t, []string{"S", "M"}, apparel.Sizes)
	assert.Equal(t, "Lawn", apparel.Fabric)

	f := products[1]
	assert.Equal(t, "roselina", f.ID)
	assert.False(t, f.InStock)
	assert.Equal(t, []string{"r.png"}, f.Images)
	fragrance, ok := f.Fragrance()
	require.True(t, ok)
	require.Len(t, fragrance.Volumes, 2)
	assert.Equal(t, "50ml", fragrance.Volumes[0].Label)
	assert.True(t, decimal.NewFromInt(1200).Equal(fragrance.Volumes[1].Price))
	assert.True(t, fragrance.Volumes[1].OriginalPrice.IsZero())
	assert.Equal(t, catalog.Notes{Top: "Bergamot", Heart: "Rose", Base: "Musk"}, fragrance.Notes)
}

func TestDecode_Errors(t *testing.T) {
	for name, doc := range map[string]string{
		"not an array":   `{"id": 1}`,
		"missing id":     `[{"name": "x"}]`,
		"bad price":      `[{"id": 1, "price": "cheap"}]`,
		"unlabeled size": `[{"id": 1, "volumes": [{"price": 1}]}]`,
		"truncated":      `[{"id": 1, "name": "x"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestEmbedded(t *testing.T) {
	c, err := Embedded()
	require.NoError(t, err)
	require.Positive(t, c.Len())

	ctx := context.Background()
	products, err := c.List(ctx)
	require.NoError(t, err)

	var apparel, fragrance int
	for _, p := range products {
		switch p.Kind() {
		case catalog.KindApparel:
			apparel++
		case catalog.KindFragrance:
			fragrance++
		}
	}
	assert.Positive(t, apparel)
	assert.Positive(t, fragrance)

	p, err := c.GetByID(ctx, "roselina")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1200).Equal(p.DisplayPrice()), "smallest bottle is shown")
}

func TestOpen_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	c, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestOpen_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Open(path)
	require.NoError(t, err)

	_, err = c.GetByID(context.Background(), "7")
	require.NoError(t, err)
	_, err = c.GetByID(context.Background(), "8")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = Open(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNew_DuplicateIDs(t *testing.T) {
	_, err := New([]catalog.Product{{ID: "1"}, {ID: "1"}})
	assert.Error(t, err)
}

func TestCatalog_GetByIDReturnsCopy(t *testing.T) {
	c, err := New([]catalog.Product{{ID: "1", Name: "Original"}})
	require.NoError(t, err)

	p, err := c.GetByID(context.Background(), "1")
	require.NoError(t, err)
	p.Name = "Changed"

	again, err := c.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name)
}
