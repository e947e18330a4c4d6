package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/soch-storefront/internal/domain/cart"
	"github.com/xenking/soch-storefront/internal/domain/catalog"
	"github.com/xenking/soch-storefront/internal/domain/checkout"
	"github.com/xenking/soch-storefront/internal/domain/contact"
	"github.com/xenking/soch-storefront/internal/handler"
	"github.com/xenking/soch-storefront/internal/relay"
	"github.com/xenking/soch-storefront/internal/session"
	"github.com/xenking/soch-storefront/internal/storage/file"
	"github.com/xenking/soch-storefront/internal/storage/postgres"
	"github.com/xenking/soch-storefront/pkg/health"
	"github.com/xenking/soch-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.Catalog.Source),
	)

	g, ctx := errgroup.WithContext(ctx)

	svc, err := newService(ctx, m, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Checkout waits for the relay.
		WriteTimeout:   cfg.Relay.Timeout + cfg.Relay.ProbeTimeout + 5*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        svc.handler,
	}

	svc.start(ctx, cfg.Session.SweepInterval)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-ctx.Done()
		svc.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		svc.health.Stop()
		lg.Info("Sessions dropped", zap.Int("count", svc.sessions.Len()))
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// service is the assembled application behind the HTTP server.
type service struct {
	handler  http.Handler
	health   *health.Health
	sessions *session.Registry
	close    func()
}

// start launches the background loops. They stop when ctx is cancelled;
// health checks additionally stop on health.Stop.
func (s *service) start(ctx context.Context, sweepInterval time.Duration) {
	s.health.Start(ctx, 10*time.Second)
	s.sessions.Start(ctx, sweepInterval)
	s.health.SetReady(true)
}

func newService(ctx context.Context, m httpmiddleware.Telemetry, cfg *Config) (*service, error) {
	lg := zctx.From(ctx)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", health.GCMaxPauseCheck(time.Second))

	products, closeCatalog, err := openCatalog(ctx, cfg.Catalog, healthSvc)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}

	// Relay shared by checkout and the contact page.
	if cfg.Relay.AccessKey == "" {
		lg.Warn("Relay access key is not set; submissions will be rejected by the relay")
	}
	relayClient := relay.NewClient(relay.Config{
		Endpoint:  cfg.Relay.Endpoint,
		AccessKey: cfg.Relay.AccessKey,
	}, m.TracerProvider(), m.MeterProvider())

	var prober relay.Prober
	if cfg.Relay.Probe {
		p, err := relay.NewDialProber(cfg.Relay.Endpoint, cfg.Relay.ProbeTimeout)
		if err != nil {
			closeCatalog()
			return nil, errors.Wrap(err, "relay prober")
		}
		prober = p
	}

	pricing, err := cfg.Pricing.Rules()
	if err != nil {
		closeCatalog()
		return nil, errors.Wrap(err, "pricing")
	}
	checkoutCfg := checkout.Config{
		Subject:        cfg.Checkout.Subject,
		DefaultCountry: cfg.Checkout.DefaultCountry,
		Timeout:        cfg.Relay.Timeout,
		Pricing:        pricing,
	}

	// One cart and one checkout flow per shopper session.
	sessions := session.NewRegistry(cfg.Session.TTL, func(c *cart.Store) *checkout.Flow {
		return checkout.NewFlow(c, relayClient, prober, checkoutCfg)
	})

	h, err := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		products,
		contact.NewService(relayClient, prober, cfg.Relay.Timeout),
		m.MeterProvider(),
	)
	if err != nil {
		closeCatalog()
		return nil, errors.Wrap(err, "create handler")
	}

	api := http.NewServeMux()
	h.Register(api)

	// Mux: health endpoints + API routes on one server. Only API routes get a
	// session.
	routeFinder := httpmiddleware.MakeRouteFinder(api)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", httpmiddleware.Wrap(api,
		sessions.Middleware(session.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
			MaxAge: cfg.Session.TTL,
		}),
	))

	return &service{
		handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.CookieKey(cfg.Session.CookieName),
				Skip: func(r *http.Request) bool {
					return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
				},
			}),
			httpmiddleware.Instrument("storefront-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
		health:   healthSvc,
		sessions: sessions,
		close:    closeCatalog,
	}, nil
}

// openCatalog builds the product repository for the configured source and
// registers its readiness check. The returned func releases its resources.
func openCatalog(ctx context.Context, cfg CatalogConfig, h *health.Health) (catalog.Repository, func(), error) {
	lg := zctx.From(ctx)

	switch cfg.Source {
	case CatalogPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		h.AddReadinessCheck("postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
		lg.Info("Catalog served from PostgreSQL")
		return postgres.NewProductRepository(pool), pool.Close, nil

	case CatalogFile:
		c, err := file.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		h.AddReadinessCheck("catalog", catalogCheck(c))
		lg.Info("Catalog loaded", zap.String("path", cfg.Path), zap.Int("products", c.Len()))
		return c, func() {}, nil

	default:
		c, err := file.Embedded()
		if err != nil {
			return nil, nil, err
		}
		h.AddReadinessCheck("catalog", catalogCheck(c))
		lg.Info("Embedded catalog loaded", zap.Int("products", c.Len()))
		return c, func() {}, nil
	}
}

func catalogCheck(c *file.Catalog) health.CheckFunc {
	return func(context.Context) error {
		if c.Len() == 0 {
			return errors.New("catalog is empty")
		}
		return nil
	}
}
