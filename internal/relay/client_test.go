package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(url string) *Client {
	return NewClient(Config{Endpoint: url, AccessKey: "key-123"},
		tracenoop.NewTracerProvider(),
		metricnoop.NewMeterProvider(),
	)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// keys returns the top-level keys of a JSON object in document order.
func keys(t *testing.T, raw []byte) []string {
	t.Helper()
	var out []string
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		out = append(out, key)
		return d.Skip()
	})
	require.NoError(t, err)
	return out
}

func TestClient_Submit_Encodes(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"success":true,"message":"Email sent"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.Submit(context.Background(), Submission{
		Subject: "New order",
		Name:    "Ayesha Khan",
		Email:   "ayesha@example.com",
		Phone:   "555-0100",
		Message: "hello",
		Fields: []Field{
			{Name: "order_reference", Value: "ref-1"},
			{Name: "total", Value: "140.39"},
		},
		Lines: []Line{{
			Name:     "Afsanay",
			Size:     "M",
			Quantity: 2,
			Price:    decimal.RequireFromString("10"),
			Total:    decimal.RequireFromString("20"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, &Response{Success: true, Message: "Email sent"}, resp)

	assert.Equal(t, []string{
		"access_key", "subject", "name", "email", "phone", "message",
		"order_reference", "total", "items",
	}, keys(t, body))

	var (
		accessKey string
		lines     []map[string]string
	)
	err = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "access_key":
			v, err := d.Str()
			accessKey = v
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				line := map[string]string{}
				err := d.Obj(func(d *jx.Decoder, key string) error {
					if d.Next() == jx.Number {
						n, err := d.Int()
						if err != nil {
							return err
						}
						line[key] = decimal.NewFromInt(int64(n)).String()
						return nil
					}
					v, err := d.Str()
					line[key] = v
					return err
				})
				lines = append(lines, line)
				return err
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "key-123", accessKey)
	assert.Equal(t, []map[string]string{{
		"name":     "Afsanay",
		"size":     "M",
		"quantity": "2",
		"price":    "10.00",
		"total":    "20.00",
	}}, lines)
}

func TestClient_Submit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
		kind    Kind
	}{
		{
			name:    "non-2xx status",
			handler: respond(http.StatusBadGateway, `{"success":true}`),
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusBadGateway, statusErr.Code)
			},
			kind: KindStatus,
		},
		{
			name:    "not json",
			handler: respond(http.StatusOK, `<html>oops</html>`),
			check: func(t *testing.T, err error) {
				var malformed *MalformedError
				require.ErrorAs(t, err, &malformed)
			},
			kind: KindMalformed,
		},
		{
			name:    "missing success field",
			handler: respond(http.StatusOK, `{"message":"ok"}`),
			check: func(t *testing.T, err error) {
				var malformed *MalformedError
				require.ErrorAs(t, err, &malformed)
			},
			kind: KindMalformed,
		},
		{
			name:    "success is not a bool",
			handler: respond(http.StatusOK, `{"success":"yes"}`),
			check: func(t *testing.T, err error) {
				var malformed *MalformedError
				require.ErrorAs(t, err, &malformed)
			},
			kind: KindMalformed,
		},
		{
			name:    "rejected",
			handler: respond(http.StatusOK, `{"success":false,"message":"Invalid access key"}`),
			check: func(t *testing.T, err error) {
				var rejected *RejectedError
				require.ErrorAs(t, err, &rejected)
				assert.Equal(t, "Invalid access key", rejected.Message)
			},
			kind: KindRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			resp, err := newTestClient(srv.URL).Submit(context.Background(), Submission{Subject: "s"})
			require.Error(t, err)
			assert.Nil(t, resp)
			tt.check(t, err)
			assert.Equal(t, tt.kind, Classify(err).Kind)
		})
	}
}

func TestClient_Submit_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL).Submit(ctx, Submission{Subject: "s"})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, KindTimeout, Classify(err).Kind)
}

func TestClient_Submit_Unreachable(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusOK, `{"success":true}`))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Submit(context.Background(), Submission{Subject: "s"})
	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, KindUnreachable, Classify(err).Kind)
}
