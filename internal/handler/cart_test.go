package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/soch-storefront/internal/domain/cart"
)

const addShirt = `{"productId":"1","size":"M","color":"White","quantity":2}`

func TestGetCart_Empty(t *testing.T) {
	e := newTestEnv(t, nil)

	code, body := e.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "true", field(t, body, "empty"))
	assert.Equal(t, "false", field(t, body, "canCheckout"))
	assert.Equal(t, "false", field(t, body, "isOpen"))
	assert.Equal(t, "/", field(t, body, "continue"))
	assert.Equal(t, "0.00", field(t, body, "summary.total"))
	require.NotNil(t, e.cookie, "session cookie is set on first request")
}

func TestAddCartItem(t *testing.T) {
	e := newTestEnv(t, nil)

	code, body := e.do(http.MethodPost, "/api/cart/items", addShirt)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "true", field(t, body, "isOpen"))
	assert.Equal(t, "true", field(t, body, "canCheckout"))
	assert.Equal(t, "", field(t, body, "continue"))
	assert.Equal(t, 1, arrayLen(t, body, "items"))
	assert.Equal(t, "2", field(t, body, "items.0.quantity"))
	assert.Equal(t, "49.99", field(t, body, "items.0.unitPrice"))
	assert.Equal(t, "99.98", field(t, body, "items.0.total"))
	assert.Equal(t, "Size: M, Color: White", field(t, body, "items.0.variant"))
	assert.Equal(t, "https://img.example/images/shirt-1.jpg", field(t, body, "items.0.image"))

	assert.Equal(t, "2", field(t, body, "summary.itemCount"))
	assert.Equal(t, "99.98", field(t, body, "summary.subtotal"))
	assert.Equal(t, "10.00", field(t, body, "summary.tax"))
	assert.Equal(t, "Sales Tax", field(t, body, "summary.taxLabel"))
	assert.Equal(t, "0.00", field(t, body, "summary.shipping"))
	assert.Equal(t, "109.98", field(t, body, "summary.total"))
}

func TestAddCartItem_MergesAndClamps(t *testing.T) {
	e := newTestEnv(t, nil)

	e.do(http.MethodPost, "/api/cart/items", addShirt)
	_, body := e.do(http.MethodPost, "/api/cart/items", `{"productId":"1","size":"M","color":"White","quantity":9}`)
	assert.Equal(t, 1, arrayLen(t, body, "items"))
	assert.Equal(t, "10", field(t, body, "items.0.quantity"))

	_, body = e.do(http.MethodPost, "/api/cart/items", `{"productId":"1","size":"M","color":"Navy Blue"}`)
	assert.Equal(t, 2, arrayLen(t, body, "items"), "color is part of line identity")
	assert.Equal(t, "1", field(t, body, "items.1.quantity"), "quantity defaults to one")
}

func TestAddCartItem_Fragrance(t *testing.T) {
	e := newTestEnv(t, nil)

	code, body := e.do(http.MethodPost, "/api/cart/items", `{"productId":"roselina","volume":"50ml"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "50ml", field(t, body, "items.0.volume"))
	assert.Equal(t, "60.00", field(t, body, "items.0.unitPrice"))
}

func TestAddCartItem_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
		field   string
		reason  string
	}{
		{
			name:  "missing selection",
			body:  `{"productId":"1","size":"M"}`,
			code:  http.StatusUnprocessableEntity,
			field: "color", reason: "required",
			message: "please select a color",
		},
		{
			name:  "unknown option",
			body:  `{"productId":"1","size":"XXL","color":"White"}`,
			code:  http.StatusUnprocessableEntity,
			field: "size", reason: "invalid",
		},
		{
			name:    "out of stock",
			body:    `{"productId":"2","size":"M"}`,
			code:    http.StatusConflict,
			message: "product is out of stock",
		},
		{
			name:    "unknown product",
			body:    `{"productId":"404"}`,
			code:    http.StatusNotFound,
			message: "product not found",
		},
		{
			name:  "no product",
			body:  `{"size":"M"}`,
			code:  http.StatusUnprocessableEntity,
			field: "productId", reason: "required",
		},
		{
			name: "malformed body",
			body: `{"productId":`,
			code: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, nil)

			code, body := e.do(http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, tt.code, code)
			if tt.message != "" {
				assert.Equal(t, tt.message, field(t, body, "message"))
			}
			if tt.field != "" {
				assert.Equal(t, tt.reason, field(t, body, "fields."+tt.field))
			}

			_, body = e.do(http.MethodGet, "/api/cart", "")
			assert.Equal(t, "true", field(t, body, "empty"), "rejected adds leave the cart alone")
			assert.Equal(t, "false", field(t, body, "isOpen"))
		})
	}
}

func TestUpdateCartItem(t *testing.T) {
	e := newTestEnv(t, nil)
	_, body := e.do(http.MethodPost, "/api/cart/items", addShirt)
	key := field(t, body, "items.0.key")

	code, body := e.do(http.MethodPatch, "/api/cart/items/"+key, `{"quantity":5}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "5", field(t, body, "items.0.quantity"))

	for _, q := range []string{"0", "11", "-1"} {
		code, body = e.do(http.MethodPatch, "/api/cart/items/"+key, `{"quantity":`+q+`}`)
		assert.Equal(t, http.StatusUnprocessableEntity, code, q)
		assert.Equal(t, "invalid", field(t, body, "fields.quantity"))
		assert.Equal(t, "5", field(t, body, "cart.items.0.quantity"), "cart is unchanged")
	}

	code, _ = e.do(http.MethodPatch, "/api/cart/items/"+key, `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	unknown := cart.Key{ProductID: "1", Variant: cart.Variant{Size: "L", Color: "White"}}.String()
	code, _ = e.do(http.MethodPatch, "/api/cart/items/"+unknown, `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(http.MethodPatch, "/api/cart/items/!!", `{"quantity":2}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRemoveCartItem(t *testing.T) {
	e := newTestEnv(t, nil)
	e.do(http.MethodPost, "/api/cart/items", addShirt)
	_, body := e.do(http.MethodPost, "/api/cart/items", `{"productId":"roselina","volume":"10ml"}`)
	key := field(t, body, "items.0.key")

	code, body := e.do(http.MethodDelete, "/api/cart/items/"+key, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, arrayLen(t, body, "items"))
	assert.Equal(t, "roselina", field(t, body, "items.0.productId"))

	code, body = e.do(http.MethodDelete, "/api/cart/items/"+key, "")
	assert.Equal(t, http.StatusOK, code, "removing twice is a no-op")
	assert.Equal(t, 1, arrayLen(t, body, "items"))
}

func TestCartDrawer(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.do(http.MethodPost, "/api/cart/open", "")
	assert.Equal(t, "true", field(t, body, "isOpen"))
	_, body = e.do(http.MethodPost, "/api/cart/close", "")
	assert.Equal(t, "false", field(t, body, "isOpen"))
}

func TestProceedToCheckout(t *testing.T) {
	e := newTestEnv(t, nil)

	code, body := e.do(http.MethodPost, "/api/cart/checkout", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "cart is empty", field(t, body, "message"))

	e.do(http.MethodPost, "/api/cart/items", addShirt)
	code, body = e.do(http.MethodPost, "/api/cart/checkout", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/checkout", field(t, body, "next"))

	_, body = e.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, "false", field(t, body, "isOpen"))
	assert.Equal(t, 1, arrayLen(t, body, "items"), "items stay in the cart")
}

func TestCart_SessionsAreIndependent(t *testing.T) {
	a := newTestEnv(t, nil)
	a.do(http.MethodPost, "/api/cart/items", addShirt)

	// Same server, new browser.
	b := &testEnv{t: t, handler: a.handler, relay: a.relay}
	_, body := b.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, "true", field(t, body, "empty"))

	_, body = a.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, 1, arrayLen(t, body, "items"))
}
