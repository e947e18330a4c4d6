// Package session owns the per-shopper cart and checkout state.
//
// A session lives only in memory. It is created on the first request that
// carries no valid session cookie and is dropped after it has been idle for
// the configured TTL.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/domain/checkout"
)

// Session is one shopper's state. Sessions never share a cart.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Flow

	lastSeen time.Time // guarded by Registry.mu
}

// CheckoutFactory builds the checkout flow bound to a new session's cart.
type CheckoutFactory func(c *cart.Store) *checkout.Flow

// Registry maps session ids to sessions.
type Registry struct {
	ttl         time.Duration
	newCheckout CheckoutFactory
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions expire after ttl of inactivity.
func NewRegistry(ttl time.Duration, newCheckout CheckoutFactory) *Registry {
	return &Registry{
		ttl:         ttl,
		newCheckout: newCheckout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the live session with id and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if r.expired(s, now) {
		delete(r.sessions, id)
		return nil, false
	}
	s.lastSeen = now
	return s, true
}

// expired must be called with r.mu held. A session with a submission in
// flight never expires.
func (r *Registry) expired(s *Session, now time.Time) bool {
	if now.Sub(s.lastSeen) < r.ttl {
		return false
	}
	return s.Checkout == nil || s.Checkout.Status().State != checkout.StateSubmitting
}

// Create starts a new session with an empty, closed cart and an idle checkout.
func (r *Registry) Create() *Session {
	c := cart.NewStore()
	s := &Session{
		ID:       uuid.NewString(),
		Cart:     c,
		Checkout: r.newCheckout(c),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s.lastSeen = r.now()
	r.sessions[s.ID] = s
	return s
}

// Delete drops a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for at least the TTL and returns how many were
// removed. A session with a submission in flight is kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if !r.expired(s, now) {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// Start sweeps expired sessions every interval until ctx is cancelled.
func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	lg := zctx.From(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.Sweep(now); n > 0 {
					lg.Debug("Expired sessions swept", zap.Int("removed", n), zap.Int("live", r.Len()))
				}
			}
		}
	}()
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
