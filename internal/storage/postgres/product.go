package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/soch-storefront/internal/domain/catalog"
)

const (
	productColumns = `id, name, kind, category, sub_category, description, images, in_stock,
		price, original_price, sizes, colors, fabric, notes_top, notes_heart, notes_base`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY position, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listVolumesSQL = `SELECT product_id, label, price, original_price FROM product_volumes`

	getVolumesSQL = `SELECT product_id, label, price, original_price FROM product_volumes
		WHERE product_id = $1`

	upsertProductSQL = `INSERT INTO products (
			id, name, kind, category, sub_category, description, images, in_stock,
			price, original_price, sizes, colors, fabric, notes_top, notes_heart, notes_base,
			position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			category = EXCLUDED.category,
			sub_category = EXCLUDED.sub_category,
			description = EXCLUDED.description,
			images = EXCLUDED.images,
			in_stock = EXCLUDED.in_stock,
			price = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			sizes = EXCLUDED.sizes,
			colors = EXCLUDED.colors,
			fabric = EXCLUDED.fabric,
			notes_top = EXCLUDED.notes_top,
			notes_heart = EXCLUDED.notes_heart,
			notes_base = EXCLUDED.notes_base,
			position = EXCLUDED.position,
			updated_at = now()`

	deleteVolumesSQL = `DELETE FROM product_volumes WHERE product_id = $1`

	insertVolumeSQL = `INSERT INTO product_volumes (product_id, label, price, original_price)
		VALUES ($1, $2, $3, $4)`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog in seeding order.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	rows, err = r.pool.Query(ctx, listVolumesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}
	vols, err := pgx.CollectRows(rows, scanVolume)
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}

	attachVolumes(products, vols)
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	if p.Kind() == catalog.KindFragrance {
		rows, err := r.pool.Query(ctx, getVolumesSQL, id)
		if err != nil {
			return nil, fmt.Errorf("getting volumes of %q: %w", id, err)
		}
		vols, err := pgx.CollectRows(rows, scanVolume)
		if err != nil {
			return nil, fmt.Errorf("getting volumes of %q: %w", id, err)
		}
		products := []catalog.Product{p}
		attachVolumes(products, vols)
		p = products[0]
	}
	return &p, nil
}

// Upsert writes products in a single transaction. List order follows the
// slice order of the last Upsert.
func (r *ProductRepository) Upsert(ctx context.Context, products []catalog.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range products {
			if err := upsertProduct(ctx, tx, &products[i], i); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProduct(ctx context.Context, tx pgx.Tx, p *catalog.Product, position int) error {
	var (
		apparel   catalog.Apparel
		fragrance catalog.Fragrance
		price     decimal.NullDecimal
		original  decimal.NullDecimal
	)
	switch d := p.Details.(type) {
	case catalog.Apparel:
		apparel = d
		price = decimal.NewNullDecimal(d.Price)
		original = nullIfZero(d.OriginalPrice)
	case catalog.Fragrance:
		fragrance = d
	default:
		return errors.Errorf("product %q has no details", p.ID)
	}

	images := p.Images
	if images == nil {
		images = []string{}
	}
	sizes := apparel.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	colors := apparel.Colors
	if colors == nil {
		colors = []string{}
	}

	if _, err := tx.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, string(p.Kind()), p.Category, p.SubCategory, p.Description, images, p.InStock,
		price, original, sizes, colors, apparel.Fabric,
		fragrance.Notes.Top, fragrance.Notes.Heart, fragrance.Notes.Base,
		position,
	); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}

	if _, err := tx.Exec(ctx, deleteVolumesSQL, p.ID); err != nil {
		return fmt.Errorf("clearing volumes of %q: %w", p.ID, err)
	}
	for _, v := range fragrance.Volumes {
		if _, err := tx.Exec(ctx, insertVolumeSQL, p.ID, v.Label, v.Price, nullIfZero(v.OriginalPrice)); err != nil {
			return fmt.Errorf("inserting volume %s of %q: %w", v.Label, p.ID, err)
		}
	}
	return nil
}

func nullIfZero(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p        catalog.Product
		kind     string
		price    decimal.NullDecimal
		original decimal.NullDecimal
		apparel  catalog.Apparel
		notes    catalog.Notes
	)
	err := row.Scan(
		&p.ID, &p.Name, &kind, &p.Category, &p.SubCategory, &p.Description, &p.Images, &p.InStock,
		&price, &original, &apparel.Sizes, &apparel.Colors, &apparel.Fabric,
		&notes.Top, &notes.Heart, &notes.Base,
	)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("scanning product: %w", err)
	}

	switch catalog.Kind(kind) {
	case catalog.KindFragrance:
		p.Details = catalog.Fragrance{Notes: notes}
	default:
		apparel.Price = price.Decimal
		apparel.OriginalPrice = original.Decimal
		p.Details = apparel
	}
	return p, nil
}

type volumeRow struct {
	productID string
	volume    catalog.Volume
}

func scanVolume(row pgx.CollectableRow) (volumeRow, error) {
	var (
		v        volumeRow
		original decimal.NullDecimal
	)
	if err := row.Scan(&v.productID, &v.volume.Label, &v.volume.Price, &original); err != nil {
		return volumeRow{}, fmt.Errorf("scanning volume: %w", err)
	}
	v.volume.OriginalPrice = original.Decimal
	return v, nil
}

func attachVolumes(products []catalog.Product, vols []volumeRow) {
	byProduct := make(map[string][]catalog.Volume, len(products))
	for _, v := range vols {
		byProduct[v.productID] = append(byProduct[v.productID], v.volume)
	}
	for i := range products {
		f, ok := products[i].Fragrance()
		if !ok {
			continue
		}
		f.Volumes = byProduct[products[i].ID]
		products[i].Details = f
	}
}
