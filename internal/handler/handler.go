// Package handler implements the storefront JSON API on net/http.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/soch-storefront/internal/domain/catalog"
	"github.com/xenking/soch-storefront/internal/domain/contact"
	"github.com/xenking/soch-storefront/internal/session"
)

// Routes the API hands back to the browser.
const (
	RouteHome     = "/"
	RouteCart     = "/cart"
	RouteCheckout = "/checkout"
)

// ProductRoute returns the product page route for id.
func ProductRoute(id string) string {
	return "/product/" + id
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
}

// Handler serves the catalog, cart, checkout and contact endpoints. Cart and
// checkout state comes from the session attached to the request context.
type Handler struct {
	products     catalog.Repository
	contact      *contact.Service
	imageBaseURL string

	cartMutations metric.Int64Counter
	checkouts     metric.Int64Counter
	contacts      metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, products catalog.Repository, contactSvc *contact.Service, mp metric.MeterProvider) (*Handler, error) {
	meter := mp.Meter("github.com/xenking/soch-storefront/internal/handler")

	h := &Handler{
		products:     products,
		contact:      contactSvc,
		imageBaseURL: cfg.ImageBaseURL,
	}

	var err error
	if h.cartMutations, err = meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Cart mutations by operation"),
	); err != nil {
		return nil, errors.Wrap(err, "cart mutations counter")
	}
	if h.checkouts, err = meter.Int64Counter("storefront.checkout.submissions",
		metric.WithDescription("Checkout submission attempts by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout counter")
	}
	if h.contacts, err = meter.Int64Counter("storefront.contact.messages",
		metric.WithDescription("Contact messages by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "contact counter")
	}
	return h, nil
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{key}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{key}", h.RemoveCartItem)
	mux.HandleFunc("POST /api/cart/open", h.OpenCart)
	mux.HandleFunc("POST /api/cart/close", h.CloseCart)
	mux.HandleFunc("POST /api/cart/checkout", h.ProceedToCheckout)

	mux.HandleFunc("GET /api/checkout", h.GetCheckout)
	mux.HandleFunc("PUT /api/checkout/form", h.UpdateCheckoutForm)
	mux.HandleFunc("POST /api/checkout/submit", h.SubmitCheckout)
	mux.HandleFunc("POST /api/checkout/retry", h.RetryCheckout)
	mux.HandleFunc("POST /api/checkout/reset", h.ResetCheckout)

	mux.HandleFunc("POST /api/contact", h.SendContact)
}

// sessionOf resolves the request's session or answers 500. The session
// middleware always attaches one, so a miss is a wiring bug.
func sessionOf(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "session is not available")
	}
	return s, ok
}

func outcome(v string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("outcome", v))
}
