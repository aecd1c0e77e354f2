package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"CROSSLIST_APP_NAME":                    os.Getenv("CROSSLIST_APP_NAME"),
		"CROSSLIST_APP_ENV":                     os.Getenv("CROSSLIST_APP_ENV"),
		"CROSSLIST_APP_PORT":                    os.Getenv("CROSSLIST_APP_PORT"),
		"CROSSLIST_DATABASE_HOST":               os.Getenv("CROSSLIST_DATABASE_HOST"),
		"CROSSLIST_DATABASE_PORT":               os.Getenv("CROSSLIST_DATABASE_PORT"),
		"CROSSLIST_DATABASE_PASSWORD":           os.Getenv("CROSSLIST_DATABASE_PASSWORD"),
		"CROSSLIST_DATABASE_SSLMODE":            os.Getenv("CROSSLIST_DATABASE_SSLMODE"),
		"CROSSLIST_CREDENTIALS_SECRET":          os.Getenv("CROSSLIST_CREDENTIALS_SECRET"),
		"CROSSLIST_CATALOG_BASE_URL":            os.Getenv("CROSSLIST_CATALOG_BASE_URL"),
		"CROSSLIST_IDEMPOTENCY_BACKEND":         os.Getenv("CROSSLIST_IDEMPOTENCY_BACKEND"),
		"CROSSLIST_MARKETPLACE_CRAIGSLIST_SITE": os.Getenv("CROSSLIST_MARKETPLACE_CRAIGSLIST_SITE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "crosslist-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "crosslist", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, "USD", cfg.Marketplace.Currency)
		assert.Equal(t, "sfbay", cfg.Marketplace.CraigslistSite)
		assert.Equal(t, "memory", cfg.Idempotency.Backend)
		assert.Equal(t, 100, cfg.Reconciliation.BatchSize)
		assert.False(t, cfg.Telemetry.LogsEnabled)
		assert.False(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, "http://localhost:4040", cfg.Telemetry.ProfilingServerAddr)
	})

	t.Run("loads values from environment variables with CROSSLIST prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("CROSSLIST_APP_NAME", "test-app")
		os.Setenv("CROSSLIST_APP_PORT", "9000")
		os.Setenv("CROSSLIST_DATABASE_HOST", "testdb.local")
		os.Setenv("CROSSLIST_DATABASE_PORT", "5433")
		os.Setenv("CROSSLIST_CATALOG_BASE_URL", "http://catalog.internal:8081")
		os.Setenv("CROSSLIST_MARKETPLACE_CRAIGSLIST_SITE", "newyork")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "http://catalog.internal:8081", cfg.Catalog.BaseURL)
		assert.Equal(t, "newyork", cfg.Marketplace.CraigslistSite)
	})

	t.Run("production requires credential secret", func(t *testing.T) {
		clearEnv()
		os.Setenv("CROSSLIST_APP_ENV", "production")
		os.Setenv("CROSSLIST_DATABASE_PASSWORD", "prodpass")
		os.Setenv("CROSSLIST_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials.secret")
	})

	t.Run("production rejects short credential secret", func(t *testing.T) {
		clearEnv()
		os.Setenv("CROSSLIST_APP_ENV", "production")
		os.Setenv("CROSSLIST_DATABASE_PASSWORD", "prodpass")
		os.Setenv("CROSSLIST_DATABASE_SSLMODE", "require")
		os.Setenv("CROSSLIST_CREDENTIALS_SECRET", "tooshort")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("production rejects sslmode disable", func(t *testing.T) {
		clearEnv()
		os.Setenv("CROSSLIST_APP_ENV", "production")
		os.Setenv("CROSSLIST_DATABASE_PASSWORD", "prodpass")
		os.Setenv("CROSSLIST_CREDENTIALS_SECRET", "0123456789abcdef0123456789abcdef")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("rejects unknown idempotency backend", func(t *testing.T) {
		clearEnv()
		os.Setenv("CROSSLIST_IDEMPOTENCY_BACKEND", "cassandra")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "idempotency.backend")
	})
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "crosslist",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisConfigAddr(t *testing.T) {
	cfg := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}
