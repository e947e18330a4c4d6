// Package relay submits order and contact payloads to the third-party form
// relay that turns them into e-mail.
package relay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxResponseSize = 1 << 20

// Field is an extra named value forwarded with a submission. Order is kept.
type Field struct {
	Name  string
	Value string
}

// Line is one ordered item attached to a submission.
type Line struct {
	Name     string
	Size     string
	Color    string
	Volume   string
	Quantity int
	Price    decimal.Decimal
	Total    decimal.Decimal
}

// Submission is the payload posted to the relay.
type Submission struct {
	Subject string
	Name    string
	Email   string
	Phone   string
	Message string
	Fields  []Field
	Lines   []Line
}

// Response is the decoded relay answer.
type Response struct {
	Success bool
	Message string
}

// Submitter posts a submission to the relay.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (*Response, error)
}

var _ Submitter = (*Client)(nil)

// Config configures Client.
type Config struct {
	Endpoint  string
	AccessKey string
}

// Client is an HTTP relay client.
type Client struct {
	endpoint  string
	accessKey string
	http      *http.Client
	tracer    trace.Tracer
}

// NewClient creates a relay client whose transport is traced and measured
// through the given providers.
func NewClient(cfg Config, tp trace.TracerProvider, mp metric.MeterProvider) *Client {
	return &Client{
		endpoint:  cfg.Endpoint,
		accessKey: cfg.AccessKey,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithMeterProvider(mp),
			),
		},
		tracer: tp.Tracer("github.com/xenking/soch-storefront/internal/relay"),
	}
}

// Submit posts s and returns the decoded response. The request is bounded
// only by ctx; callers apply their own deadline.
func (c *Client) Submit(ctx context.Context, s Submission) (_ *Response, rerr error) {
	ctx, span := c.tracer.Start(ctx, "relay.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("relay.subject", s.Subject),
			attribute.Int("relay.lines", len(s.Lines)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	body := c.encode(s)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "submit")
		}
		return nil, &UnreachableError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	zctx.From(ctx).Debug("Relay responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, &UnreachableError{Err: err}
	}

	out, err := decodeResponse(raw)
	if err != nil {
		return nil, &MalformedError{Err: err}
	}
	if !out.Success {
		return nil, &RejectedError{Message: out.Message}
	}
	return out, nil
}

func (c *Client) encode(s Submission) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("access_key")
	e.Str(c.accessKey)
	e.FieldStart("subject")
	e.Str(s.Subject)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	e.FieldStart("phone")
	e.Str(s.Phone)
	if s.Message != "" {
		e.FieldStart("message")
		e.Str(s.Message)
	}
	for _, f := range s.Fields {
		e.FieldStart(f.Name)
		e.Str(f.Value)
	}
	if len(s.Lines) > 0 {
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range s.Lines {
			encodeLine(e, l)
		}
		e.ArrEnd()
	}
	e.ObjEnd()

	return bytes.Clone(e.Bytes())
}

func encodeLine(e *jx.Encoder, l Line) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(l.Name)
	if l.Size != "" {
		e.FieldStart("size")
		e.Str(l.Size)
	}
	if l.Color != "" {
		e.FieldStart("color")
		e.Str(l.Color)
	}
	if l.Volume != "" {
		e.FieldStart("volume")
		e.Str(l.Volume)
	}
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("price")
	e.Str(l.Price.StringFixed(2))
	e.FieldStart("total")
	e.Str(l.Total.StringFixed(2))
	e.ObjEnd()
}

func decodeResponse(raw []byte) (*Response, error) {
	var (
		out     Response
		hasFlag bool
	)
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			if d.Next() != jx.Bool {
				return errors.Errorf("success is %s, want bool", d.Next())
			}
			v, err := d.Bool()
			if err != nil {
				return err
			}
			out.Success = v
			hasFlag = true
			return nil
		case "message":
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			out.Message = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if !hasFlag {
		return nil, errors.New("response has no success field")
	}
	return &out, nil
}
