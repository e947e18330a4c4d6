// Package checkout drives an order from the checkout form to the relay.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/relay"
)

// State is a checkout submission state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// DefaultTimeout bounds a single relay attempt when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Config configures a Flow.
type Config struct {
	Subject        string
	DefaultCountry string
	Timeout        time.Duration
	Pricing        cart.Pricing
}

// Status is a point-in-time view of a Flow.
type Status struct {
	State     State
	Form      Form
	Failure   *relay.Failure
	Reference string
	// Retryable is true when a failed attempt can be resent.
	Retryable bool
}

// Flow is the per-session checkout state machine:
//
//	Idle -> Submitting -> Succeeded | Failed
//	Failed -> (Retry) -> Submitting
//
// Succeeded stays until Reset or the next UpdateForm.
type Flow struct {
	cart   *cart.Store
	relay  relay.Submitter
	prober relay.Prober
	cfg    Config

	now   func() time.Time
	newID func() uuid.UUID

	mu        sync.Mutex
	state     State
	form      Form
	pending   *Order
	failure   *relay.Failure
	reference string
}

// NewFlow creates a Flow for the given cart. prober may be nil.
func NewFlow(c *cart.Store, submitter relay.Submitter, prober relay.Prober, cfg Config) *Flow {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Flow{
		cart:   c,
		relay:  submitter,
		prober: prober,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.New,
		state:  StateIdle,
		form:   Form{Country: cfg.DefaultCountry},
	}
}

// Status returns the current state.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Status{
		State:     f.state,
		Form:      f.form,
		Failure:   f.failure,
		Reference: f.reference,
		Retryable: f.state == StateFailed && f.pending != nil,
	}
}

// Pricing returns the rules orders are totalled with.
func (f *Flow) Pricing() cart.Pricing {
	return f.cfg.Pricing
}

// UpdateForm replaces the form. After a finished attempt it starts over
// from Idle; the stored payload of a failed attempt is discarded.
func (f *Flow) UpdateForm(form Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	if form.Country == "" {
		form.Country = f.cfg.DefaultCountry
	}
	f.form = form
	f.toIdle()
	return nil
}

// Reset abandons any finished attempt and returns to Idle, keeping the form.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	f.toIdle()
	return nil
}

func (f *Flow) toIdle() {
	f.state = StateIdle
	f.pending = nil
	f.failure = nil
	f.reference = ""
}

// Submit validates the form against the cart, snapshots the order and sends
// it. Relay failures are returned as *relay.Failure and leave the cart and
// form untouched.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrSubmissionInProgress
	}

	items := f.cart.Items()
	if len(items) == 0 {
		f.mu.Unlock()
		return ErrEmptyCart
	}
	form := f.form.Normalize()
	if err := form.Validate(); err != nil {
		f.mu.Unlock()
		return err
	}

	order := &Order{
		Reference:   f.newID().String(),
		Form:        form,
		Items:       items,
		Summary:     cart.Summarize(items, f.cfg.Pricing),
		SubmittedAt: f.now(),
	}
	f.begin(order)
	f.mu.Unlock()

	return f.send(ctx, order)
}

// Retry resends the payload of the last failed attempt unchanged.
func (f *Flow) Retry(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrSubmissionInProgress
	}
	if f.state != StateFailed || f.pending == nil {
		f.mu.Unlock()
		return ErrNotRetryable
	}
	order := f.pending
	f.begin(order)
	f.mu.Unlock()

	return f.send(ctx, order)
}

func (f *Flow) begin(order *Order) {
	f.state = StateSubmitting
	f.pending = order
	f.failure = nil
	f.reference = order.Reference
}

// send runs without f.mu held; the Submitting state keeps other attempts out.
func (f *Flow) send(ctx context.Context, order *Order) error {
	lg := zctx.From(ctx).With(zap.String("order_reference", order.Reference))

	err := f.attempt(ctx, order)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		failure := relay.Classify(err)
		f.state = StateFailed
		f.failure = failure
		lg.Warn("Order submission failed",
			zap.String("kind", string(failure.Kind)),
			zap.Error(err),
		)
		return failure
	}

	f.cart.Deduct(order.Items)
	f.state = StateSucceeded
	f.pending = nil
	f.form = Form{Country: f.cfg.DefaultCountry}
	lg.Info("Order submitted",
		zap.Int("items", order.Summary.ItemCount),
		zap.String("total", order.Summary.Total.StringFixed(2)),
	)
	return nil
}

func (f *Flow) attempt(ctx context.Context, order *Order) error {
	if f.prober != nil {
		if err := f.prober.Probe(ctx); err != nil {
			return errors.Wrap(err, "probe")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if _, err := f.relay.Submit(ctx, order.Submission(f.cfg.Subject)); err != nil {
		return errors.Wrap(err, "submit order")
	}
	return nil
}
