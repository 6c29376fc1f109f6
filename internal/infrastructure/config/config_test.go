package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "recordshop-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "4.99", cfg.Checkout.ShippingFee)
	assert.Equal(t, "50", cfg.Checkout.FreeShippingAbove)
	assert.Equal(t, 8.5, cfg.Checkout.TaxPercent)
	assert.Equal(t, "USD", cfg.Checkout.Currency)
	assert.Equal(t, 168*time.Hour, cfg.Cart.TTL)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Database.MaxOpenConns = 50
	cfg.Checkout.TaxPercent = 6.25
	cfg.Cart.TTL = 24 * time.Hour
	applyDefaults(cfg)

	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 6.25, cfg.Checkout.TaxPercent)
	assert.Equal(t, 24*time.Hour, cfg.Cart.TTL)
}

func TestValidateConnectionPool(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Database.MaxIdleConns = 100 // exceeds MaxOpenConns

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestValidateTaxPercent(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Checkout.TaxPercent = 120

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tax_percent")
}

func TestValidateProduction(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.App.Env = "production"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		cfg.Stripe.SecretKey = "sk_live_x"
		cfg.Stripe.WebhookSecret = "whsec_x"
		return cfg
	}

	t.Run("valid production config passes", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("missing database password", func(t *testing.T) {
		cfg := base()
		cfg.Database.Password = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("sslmode disable rejected", func(t *testing.T) {
		cfg := base()
		cfg.Database.SSLMode = "disable"
		assert.Error(t, cfg.validate())
	})

	t.Run("missing stripe credentials", func(t *testing.T) {
		cfg := base()
		cfg.Stripe.SecretKey = ""
		assert.Error(t, cfg.validate())

		cfg = base()
		cfg.Stripe.WebhookSecret = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("wildcard CORS origin rejected", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "shop",
		Password: "p@ss/word",
		DBName:   "recordshop",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("SHOP_DATABASE_HOST", "env-db")
	t.Setenv("SHOP_APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, "9090", cfg.App.Port)
}
