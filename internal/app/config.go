package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/soch-storefront/internal/domain/cart"
)

// Catalog sources.
const (
	CatalogEmbedded = "embedded"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	Catalog      CatalogConfig
	Relay        RelayConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CatalogConfig selects where products are read from.
type CatalogConfig struct {
	Source      string `default:"embedded" usage:"Catalog source: embedded, file or postgres"`
	Path        string `usage:"Catalog JSON file, optionally .gz, for source=file"`
	DatabaseURL string `usage:"PostgreSQL connection URL for source=postgres (or DATABASE_URL)"`
}

// RelayConfig points at the form relay that receives orders and contact
// messages.
type RelayConfig struct {
	Endpoint     string        `default:"https://api.web3forms.com/submit" usage:"Form relay endpoint"`
	AccessKey    string        `usage:"Form relay access key"`
	Timeout      time.Duration `default:"30s" usage:"Bound on a single relay submission"`
	Probe        bool          `default:"true" usage:"Check relay reachability before submitting"`
	ProbeTimeout time.Duration `default:"3s" usage:"Connectivity probe timeout"`
}

// PricingConfig controls the tax line of order summaries.
type PricingConfig struct {
	TaxRate  string `default:"0" usage:"Tax percentage applied to the subtotal, e.g. 8 or 8.25"`
	TaxLabel string `default:"Tax" usage:"Label of the tax line"`
}

// CheckoutConfig controls order submissions.
type CheckoutConfig struct {
	Subject        string `default:"New order from storefront checkout" usage:"Subject of order notifications"`
	DefaultCountry string `default:"United States" usage:"Country preset on the checkout form"`
}

// SessionConfig controls shopper sessions.
type SessionConfig struct {
	TTL           time.Duration `default:"2h" usage:"Idle time after which a session is discarded"`
	SweepInterval time.Duration `default:"1m" usage:"How often expired sessions are swept"`
	CookieName    string        `default:"storefront_session" usage:"Session cookie name"`
	Secure        bool          `default:"false" usage:"Mark the session cookie Secure"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials; needed for the session cookie" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/storefront/config.yaml"},
	})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	base.EnvPrefix = "STOREFRONT"
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Catalog.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Catalog.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Catalog.Source {
	case CatalogEmbedded:
	case CatalogFile:
		if c.Catalog.Path == "" {
			return errors.New("catalog path is required for source=file: set STOREFRONT_CATALOG_PATH")
		}
	case CatalogPostgres:
		if c.Catalog.DatabaseURL == "" {
			return errors.New("database URL is required for source=postgres: set STOREFRONT_CATALOG_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if _, err := c.Pricing.Rules(); err != nil {
		return err
	}
	if c.Relay.Endpoint == "" {
		return errors.New("relay endpoint is required")
	}
	if c.Session.TTL <= 0 || c.Session.SweepInterval <= 0 {
		return errors.New("session ttl and sweep interval must be positive")
	}
	return nil
}

// Rules converts the configured tax into cart pricing rules.
func (p PricingConfig) Rules() (cart.Pricing, error) {
	rate, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return cart.Pricing{}, errors.Wrapf(err, "parse tax rate %q", p.TaxRate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return cart.Pricing{}, errors.Errorf("tax rate %s is out of range [0, 100]", rate)
	}
	return cart.Pricing{TaxRate: rate, TaxLabel: p.TaxLabel}, nil
}
