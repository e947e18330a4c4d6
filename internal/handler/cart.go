package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/domain/catalog"
	"github.com/xenking/soch-storefront/internal/domain/selector"
)

// GetCart returns the cart contents, drawer flag and totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	h.writeCart(w, http.StatusOK, s.Cart, s.Checkout.Pricing())
}

// AddCartItem resolves the selection against the catalog and adds the result
// to the cart, opening the drawer.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}

	var (
		productID string
		sel       selector.Selection
	)
	if err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "productId":
			productID, err = str(d)
		case "size":
			sel.Size, err = str(d)
		case "color":
			sel.Color, err = str(d)
		case "volume":
			sel.Volume, err = str(d)
		case "quantity":
			sel.Quantity, err = integer(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if productID == "" {
		writeAPIError(w, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "productId is required",
			Missing: []string{"productId"},
		})
		return
	}

	item, err := h.buildItem(r.Context(), productID, sel)
	if err != nil {
		h.writeSelectionError(w, r, err)
		return
	}

	s.Cart.AddItem(item)
	h.countMutation(r.Context(), "add")
	h.writeCart(w, http.StatusOK, s.Cart, s.Checkout.Pricing())
}

func (h *Handler) buildItem(ctx context.Context, productID string, sel selector.Selection) (cart.LineItem, error) {
	p, err := h.products.GetByID(ctx, productID)
	if err != nil {
		return cart.LineItem{}, errors.Wrap(err, "get product")
	}
	sl, err := selector.FromSelection(p, sel)
	if err != nil {
		return cart.LineItem{}, err
	}
	return sl.Build()
}

func (h *Handler) writeSelectionError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missing *selector.MissingSelectionError
		invalid *selector.InvalidOptionError
	)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, selector.ErrOutOfStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &missing):
		fields := make([]string, len(missing.Dimensions))
		for i, d := range missing.Dimensions {
			fields[i] = string(d)
		}
		writeAPIError(w, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: missing.Error(),
			Missing: fields,
		})
	case errors.As(err, &invalid):
		writeAPIError(w, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: invalid.Error(),
			Invalid: []string{string(invalid.Dimension)},
		})
	default:
		zctx.From(r.Context()).Error("Add cart item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// UpdateCartItem sets the quantity of one line. Out-of-range quantities are
// rejected and the unchanged cart is returned with the error.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	key, err := cart.ParseKey(r.PathValue("key"))
	if err != nil {
		writeError(w, http.StatusNotFound, "cart item not found")
		return
	}

	quantity, seen := 0, false
	if err := decodeObject(w, r, func(d *jx.Decoder, k string) (err error) {
		if k != "quantity" {
			return d.Skip()
		}
		seen = true
		quantity, err = d.Int()
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !seen || !cart.ValidQuantity(quantity) {
		pricing := s.Checkout.Pricing()
		writeAPIError(w, apiError{
			Code:    http.StatusUnprocessableEntity,
			Message: "quantity must be between 1 and 10",
			Invalid: []string{"quantity"},
			Extra: func(e *jx.Encoder) {
				e.FieldStart("cart")
				h.encodeCart(e, s.Cart, pricing)
			},
		})
		return
	}

	if !s.Cart.UpdateQuantity(key.ProductID, key.Variant, quantity) {
		writeError(w, http.StatusNotFound, "cart item not found")
		return
	}
	h.countMutation(r.Context(), "update")
	h.writeCart(w, http.StatusOK, s.Cart, s.Checkout.Pricing())
}

// RemoveCartItem deletes one line. Removing a missing line is not an error.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if key, err := cart.ParseKey(r.PathValue("key")); err == nil {
		if s.Cart.RemoveItem(key.ProductID, key.Variant) {
			h.countMutation(r.Context(), "remove")
		}
	}
	h.writeCart(w, http.StatusOK, s.Cart, s.Checkout.Pricing())
}

// OpenCart shows the drawer.
func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	s.Cart.Open()
	h.writeCart(w, http.StatusOK, s.Cart, s.Checkout.Pricing())
}

// CloseCart hides the drawer.
func (h *Handler) CloseCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	s.Cart.Close()
	h.writeCart(w, http.StatusOK, s.Cart, s.Checkout.Pricing())
}

// ProceedToCheckout closes the drawer and points the browser at the checkout
// page. Items stay in the cart.
func (h *Handler) ProceedToCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOf(w, r)
	if !ok {
		return
	}
	if s.Cart.Len() == 0 {
		writeError(w, http.StatusConflict, "cart is empty")
		return
	}
	s.Cart.Close()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		strField(e, "next", RouteCheckout)
		e.ObjEnd()
	})
}

func (h *Handler) countMutation(ctx context.Context, op string) {
	h.cartMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, c *cart.Store, pricing cart.Pricing) {
	writeJSON(w, status, func(e *jx.Encoder) {
		h.encodeCart(e, c, pricing)
	})
}

func (h *Handler) encodeCart(e *jx.Encoder, c *cart.Store, pricing cart.Pricing) {
	items, isOpen := c.Snapshot()

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range items {
		h.encodeLineItem(e, item)
	}
	e.ArrEnd()
	e.FieldStart("isOpen")
	e.Bool(isOpen)
	e.FieldStart("empty")
	e.Bool(len(items) == 0)
	e.FieldStart("canCheckout")
	e.Bool(len(items) > 0)
	if len(items) == 0 {
		strField(e, "continue", RouteHome)
	}
	e.FieldStart("summary")
	encodeSummary(e, cart.Summarize(items, pricing))
	e.ObjEnd()
}

func (h *Handler) encodeLineItem(e *jx.Encoder, item cart.LineItem) {
	e.ObjStart()
	strField(e, "key", item.Key().String())
	strField(e, "productId", item.ProductID)
	strField(e, "name", item.Name)
	optStrField(e, "image", h.imageURL(item.Image))
	optStrField(e, "size", item.Variant.Size)
	optStrField(e, "color", item.Variant.Color)
	optStrField(e, "volume", item.Variant.Volume)
	optStrField(e, "variant", item.Variant.String())
	strField(e, "route", ProductRoute(item.ProductID))
	e.FieldStart("unitPrice")
	money(e, item.UnitPrice)
	e.FieldStart("quantity")
	e.Int(item.Quantity)
	e.FieldStart("total")
	money(e, item.Total())
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s cart.Summary) {
	e.ObjStart()
	e.FieldStart("itemCount")
	e.Int(s.ItemCount)
	e.FieldStart("subtotal")
	money(e, s.Subtotal)
	if s.Tax.IsPositive() || s.TaxRate.IsPositive() {
		optStrField(e, "taxLabel", s.TaxLabel)
		e.FieldStart("taxRate")
		e.Str(s.TaxRate.String())
		e.FieldStart("tax")
		money(e, s.Tax)
	}
	e.FieldStart("shipping")
	money(e, s.Shipping)
	strField(e, "shippingLabel", "Free")
	e.FieldStart("total")
	money(e, s.Total)
	e.ObjEnd()
}
