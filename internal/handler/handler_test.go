package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/domain/catalog"
	"github.com/xenking/soch-storefront/internal/domain/checkout"
	"github.com/xenking/soch-storefront/internal/domain/contact"
	"github.com/xenking/soch-storefront/internal/relay"
	"github.com/xenking/soch-storefront/internal/session"
	"github.com/xenking/soch-storefront/internal/storage/file"
)

// --- Mock implementations ---

type mockSubmitter struct {
	mu    sync.Mutex
	calls []relay.Submission
	errs  []error
}

func (m *mockSubmitter) Submit(_ context.Context, s relay.Submission) (*relay.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, s)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &relay.Response{Success: true}, nil
}

func (m *mockSubmitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type failingRepo struct{ err error }

func (r failingRepo) List(context.Context) ([]catalog.Product, error) { return nil, r.err }
func (r failingRepo) GetByID(context.Context, string) (*catalog.Product, error) {
	return nil, r.err
}

// --- Helpers ---

func testProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID:          "1",
			Name:        "Linen Shirt",
			Category:    "men",
			SubCategory: "shirts",
			Images:      []string{"/images/shirt-1.jpg", "/images/shirt-2.jpg"},
			InStock:     true,
			Details: catalog.Apparel{
				Price:         decimal.RequireFromString("49.99"),
				OriginalPrice: decimal.RequireFromString("99.99"),
				Sizes:         []string{"S", "M", "L"},
				Colors:        []string{"White", "Navy Blue"},
				Fabric:        "Linen",
			},
		},
		{
			ID:       "2",
			Name:     "Wool Coat",
			Category: "women",
			Images:   []string{"https://cdn.example/coat.jpg"},
			InStock:  false,
			Details: catalog.Apparel{
				Price: decimal.NewFromInt(120),
				Sizes: []string{"M"},
			},
		},
		{
			ID:       "roselina",
			Name:     "Roselina",
			Category: "fragrance",
			Images:   []string{"/images/roselina-10.jpg", "/images/roselina-50.jpg"},
			InStock:  true,
			Details: catalog.Fragrance{
				Volumes: []catalog.Volume{
					{Label: "50ml", Price: decimal.NewFromInt(60)},
					{Label: "10ml", Price: decimal.NewFromInt(20), OriginalPrice: decimal.NewFromInt(25)},
				},
				Notes: catalog.Notes{Top: "Bergamot", Heart: "Rose", Base: "Musk"},
			},
		},
	}
}

type testEnv struct {
	t       *testing.T
	handler http.Handler
	relay   *mockSubmitter
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T, products catalog.Repository) *testEnv {
	t.Helper()

	if products == nil {
		c, err := file.New(testProducts())
		require.NoError(t, err)
		products = c
	}

	sub := &mockSubmitter{}
	pricing := cart.Pricing{TaxRate: decimal.NewFromInt(10), TaxLabel: "Sales Tax"}
	reg := session.NewRegistry(time.Hour, func(c *cart.Store) *checkout.Flow {
		return checkout.NewFlow(c, sub, nil, checkout.Config{
			Subject:        "New order",
			DefaultCountry: "United States",
			Pricing:        pricing,
		})
	})

	h, err := New(Config{ImageBaseURL: "https://img.example/"}, products,
		contact.NewService(sub, nil, time.Second), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)

	return &testEnv{
		t:       t,
		handler: reg.Middleware(session.CookieConfig{MaxAge: time.Hour})(mux),
		relay:   sub,
	}
}

// do sends a request, carrying the session cookie between calls.
func (e *testEnv) do(method, path, body string) (int, jx.Raw) {
	e.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "storefront_session" {
			e.cookie = c
		}
	}
	assert.Equal(e.t, "application/json", w.Header().Get("Content-Type"))
	return w.Code, jx.Raw(w.Body.Bytes())
}

// field extracts a value by dotted path; array elements are addressed by
// index, e.g. "items.0.quantity". Strings are unquoted.
func field(t *testing.T, raw jx.Raw, path string) string {
	t.Helper()

	var parts []string
	if path != "" {
		parts = strings.Split(path, ".")
	}

	cur := raw
	for _, part := range parts {
		d := jx.DecodeBytes(cur)
		var next jx.Raw
		switch d.Next() {
		case jx.Object:
			require.NoError(t, d.Obj(func(d *jx.Decoder, key string) error {
				if key != part {
					return d.Skip()
				}
				v, err := d.Raw()
				next = append(jx.Raw(nil), v...)
				return err
			}))
		case jx.Array:
			i := 0
			require.NoError(t, d.Arr(func(d *jx.Decoder) error {
				defer func() { i++ }()
				if part != strconv.Itoa(i) {
					return d.Skip()
				}
				v, err := d.Raw()
				next = append(jx.Raw(nil), v...)
				return err
			}))
		default:
			t.Fatalf("cannot descend into %s at %q", cur, part)
		}
		if next == nil {
			return ""
		}
		cur = next
	}

	d := jx.DecodeBytes(cur)
	if d.Next() == jx.String {
		s, err := d.Str()
		require.NoError(t, err)
		return s
	}
	return strings.TrimSpace(cur.String())
}

func arrayLen(t *testing.T, raw jx.Raw, path string) int {
	t.Helper()
	v := field(t, raw, path)
	if v == "" {
		return 0
	}
	n := 0
	require.NoError(t, jx.DecodeStr(v).Arr(func(d *jx.Decoder) error {
		n++
		return d.Skip()
	}))
	return n
}

func fillForm(e *testEnv) {
	e.t.Helper()
	code, _ := e.do(http.MethodPut, "/api/checkout/form", `{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"phone": "555-0100", "address": "12 Analytical Way", "city": "London",
		"state": "LDN", "zipCode": "N1 9GU"
	}`)
	require.Equal(e.t, http.StatusOK, code)
}
