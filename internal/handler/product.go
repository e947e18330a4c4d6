package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/domain/catalog"
)

// ListProducts returns the catalog, optionally narrowed by the category and
// subCategory query parameters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	q := r.URL.Query()
	products = catalog.Filter{
		Category:    q.Get("category"),
		SubCategory: q.Get("subCategory"),
	}.Apply(products)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("Get product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, p)
	})
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.ObjStart()
	strField(e, "id", p.ID)
	strField(e, "name", p.Name)
	strField(e, "kind", string(p.Kind()))
	strField(e, "category", p.Category)
	optStrField(e, "subCategory", p.SubCategory)
	optStrField(e, "description", p.Description)
	strField(e, "route", ProductRoute(p.ID))

	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(h.imageURL(img))
	}
	e.ArrEnd()
	optStrField(e, "image", h.imageURL(p.DisplayImage()))

	e.FieldStart("inStock")
	e.Bool(p.InStock)
	e.FieldStart("price")
	money(e, p.DisplayPrice())
	if pct := p.DiscountPercent(); pct > 0 {
		e.FieldStart("discountPercent")
		e.Int64(pct)
	}

	e.FieldStart("dimensions")
	e.ArrStart()
	for _, d := range p.Dimensions() {
		e.Str(string(d))
	}
	e.ArrEnd()

	switch d := p.Details.(type) {
	case catalog.Apparel:
		if d.OriginalPrice.IsPositive() {
			e.FieldStart("originalPrice")
			money(e, d.OriginalPrice)
		}
		e.FieldStart("sizes")
		strArray(e, d.Sizes)
		e.FieldStart("colors")
		strArray(e, d.Colors)
		optStrField(e, "fabric", d.Fabric)
	case catalog.Fragrance:
		e.FieldStart("volumes")
		e.ArrStart()
		for _, v := range p.SortedVolumes() {
			e.ObjStart()
			strField(e, "label", v.Label)
			e.FieldStart("price")
			money(e, v.Price)
			if v.OriginalPrice.IsPositive() {
				e.FieldStart("originalPrice")
				money(e, v.OriginalPrice)
			}
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("notes")
		e.ObjStart()
		optStrField(e, "top", d.Notes.Top)
		optStrField(e, "heart", d.Notes.Heart)
		optStrField(e, "base", d.Notes.Base)
		e.ObjEnd()
	}
	e.ObjEnd()
}
