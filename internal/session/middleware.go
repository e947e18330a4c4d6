package session

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/pkg/httpmiddleware"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Middleware attaches the caller's session to the request context, starting a
// new one when the cookie is missing or has expired.
func (r *Registry) Middleware(cfg CookieConfig) httpmiddleware.Middleware {
	if cfg.Name == "" {
		cfg.Name = "storefront_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			var (
				s  *Session
				ok bool
			)
			if c, err := req.Cookie(cfg.Name); err == nil && c.Value != "" {
				s, ok = r.Get(c.Value)
			}
			if !ok {
				s = r.Create()
				zctx.From(req.Context()).Debug("Session started", zap.String("session_id", s.ID))
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cfg.Name,
				Value:    s.ID,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := NewContext(req.Context(), s)
			ctx = zctx.With(ctx, zap.String("session_id", s.ID))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
