package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicflow/notifier/pkg/config"
)

type dispatchConfig struct {
	PollInterval string `env:"DISPATCH_POLL_INTERVAL" envDefault:"15s"`
	BatchSize    int    `env:"DISPATCH_BATCH_SIZE" envDefault:"50"`
	ReapStale    bool   `env:"DISPATCH_REAP_STALE" envDefault:"true"`
}

type emailConfig struct {
	ServerToken string `env:"POSTMARK_SERVER_TOKEN" envDefault:"test-token"`
	FromAddress string `env:"EMAIL_FROM" envDefault:"noreply@example.org"`
}

type singletonConfig struct {
	Value string `env:"SINGLETON_VALUE" envDefault:"initial"`
}

type requiredConfig struct {
	WebhookSecret string `env:"WEBHOOK_SIGNING_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("reads environment", func(t *testing.T) {
		t.Setenv("DISPATCH_POLL_INTERVAL", "5s")
		t.Setenv("DISPATCH_BATCH_SIZE", "200")
		t.Setenv("DISPATCH_REAP_STALE", "false")
		config.ResetCache()

		var cfg dispatchConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "5s", cfg.PollInterval)
		assert.Equal(t, 200, cfg.BatchSize)
		assert.False(t, cfg.ReapStale)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		os.Unsetenv("POSTMARK_SERVER_TOKEN")
		os.Unsetenv("EMAIL_FROM")
		config.ResetCache()

		var cfg emailConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "test-token", cfg.ServerToken)
		assert.Equal(t, "noreply@example.org", cfg.FromAddress)
	})

	t.Run("missing required value", func(t *testing.T) {
		os.Unsetenv("WEBHOOK_SIGNING_SECRET")
		config.ResetCache()

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *dispatchConfig
		err := config.Load(cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("caches per type", func(t *testing.T) {
		t.Setenv("SINGLETON_VALUE", "first")
		config.ResetCache()

		var first singletonConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("SINGLETON_VALUE", "second")

		var second singletonConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Value, "cached value should survive env changes")

		config.ResetCache()

		var third singletonConfig
		require.NoError(t, config.Load(&third))
		assert.Equal(t, "second", third.Value, "reset should force a reparse")
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("returns parsed config", func(t *testing.T) {
		t.Setenv("DISPATCH_BATCH_SIZE", "25")
		config.ResetCache()

		var cfg dispatchConfig
		assert.NotPanics(t, func() { config.MustLoad(&cfg) })
		assert.Equal(t, 25, cfg.BatchSize)
	})

	t.Run("panics on missing required", func(t *testing.T) {
		os.Unsetenv("WEBHOOK_SIGNING_SECRET")
		config.ResetCache()

		var cfg requiredConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}

func TestLoadEnv(t *testing.T) {
	writeEnvFile := func(t *testing.T, name, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("loads explicit file", func(t *testing.T) {
		os.Unsetenv("SMS_GATEWAY_URL")
		t.Cleanup(func() { os.Unsetenv("SMS_GATEWAY_URL") })

		path := writeEnvFile(t, ".env.test", "SMS_GATEWAY_URL=https://sms.example.org\n")
		require.NoError(t, config.LoadEnv(path))
		assert.Equal(t, "https://sms.example.org", os.Getenv("SMS_GATEWAY_URL"))
	})

	t.Run("first file wins across multiple paths", func(t *testing.T) {
		os.Unsetenv("ANALYTICS_OFFSET")
		t.Cleanup(func() { os.Unsetenv("ANALYTICS_OFFSET") })

		base := writeEnvFile(t, ".env.base", "ANALYTICS_OFFSET=30m\n")
		override := writeEnvFile(t, ".env.local", "ANALYTICS_OFFSET=45m\n")

		// godotenv does not overwrite variables that are already set,
		// so earlier paths take precedence.
		require.NoError(t, config.LoadEnv(base, override))
		assert.Equal(t, "30m", os.Getenv("ANALYTICS_OFFSET"))
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.LoadEnv(filepath.Join(t.TempDir(), "absent.env"))
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})
}

func TestMustLoadEnv(t *testing.T) {
	t.Run("panics on missing file", func(t *testing.T) {
		assert.Panics(t, func() {
			config.MustLoadEnv(filepath.Join(t.TempDir(), "absent.env"))
		})
	})
}
