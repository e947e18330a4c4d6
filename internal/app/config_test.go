package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() aconfig.Config {
	return aconfig.Config{SkipFlags: true, SkipFiles: true}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, CatalogEmbedded, cfg.Catalog.Source)
	assert.Equal(t, "https://api.web3forms.com/submit", cfg.Relay.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Relay.Timeout)
	assert.True(t, cfg.Relay.Probe)
	assert.Equal(t, "United States", cfg.Checkout.DefaultCountry)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "storefront_session", cfg.Session.CookieName)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)

	pricing, err := cfg.Pricing.Rules()
	require.NoError(t, err)
	assert.True(t, pricing.TaxRate.IsZero())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("STOREFRONT_RELAY_ACCESS_KEY", "secret")
	t.Setenv("STOREFRONT_RELAY_TIMEOUT", "5s")
	t.Setenv("STOREFRONT_PRICING_TAX_RATE", "8")
	t.Setenv("STOREFRONT_CATALOG_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://shop@db/shop")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Relay.AccessKey)
	assert.Equal(t, 5*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, "postgres://shop@db/shop", cfg.Catalog.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	pricing, err := cfg.Pricing.Rules()
	require.NoError(t, err)
	assert.True(t, pricing.TaxRate.Equal(decimal.NewFromInt(8)))
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: 127.0.0.1:8081
catalog:
  source: file
  path: /srv/catalog.json.gz
pricing:
  tax_rate: "8.25"
  tax_label: Sales Tax
`), 0o600))

	cfg, err := loadConfig(aconfig.Config{SkipFlags: true, Files: []string{path}})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.Addr)
	assert.Equal(t, CatalogFile, cfg.Catalog.Source)
	assert.Equal(t, "/srv/catalog.json.gz", cfg.Catalog.Path)
	assert.Equal(t, "Sales Tax", cfg.Pricing.TaxLabel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown source", env: map[string]string{"STOREFRONT_CATALOG_SOURCE": "s3"}},
		{name: "file without path", env: map[string]string{"STOREFRONT_CATALOG_SOURCE": "file"}},
		{name: "postgres without url", env: map[string]string{"STOREFRONT_CATALOG_SOURCE": "postgres"}},
		{name: "tax rate not a number", env: map[string]string{"STOREFRONT_PRICING_TAX_RATE": "eight"}},
		{name: "negative tax rate", env: map[string]string{"STOREFRONT_PRICING_TAX_RATE": "-1"}},
		{name: "zero session ttl", env: map[string]string{"STOREFRONT_SESSION_TTL": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(testLoader())
			assert.Error(t, err)
		})
	}
}
