package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_URL", "/tmp/billing.db")
	t.Setenv("BACKEND_ADDR", "")
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_REQUIRED", "")
	t.Setenv("STRIPE_PRICE_PREMIUM", "price_premium_live")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "billing-relay", cfg.JWTIssuer)
	assert.Equal(t, 10*time.Second, cfg.WebhookHandlerTimeout)
	assert.Equal(t, "price_premium_live", cfg.PriceIDs["premium"])
	assert.False(t, cfg.AuthRequired)
	assert.NotEmpty(t, cfg.CheckoutSuccessURL)
}

func TestLoadFromEnvMissingStore(t *testing.T) {
	t.Setenv("STORE_URL", "")
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_URL")
}

func TestLoadFromEnvAuthRequiresSecret(t *testing.T) {
	t.Setenv("STORE_URL", "/tmp/billing.db")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadFromEnvRejectsBadBool(t *testing.T) {
	t.Setenv("STORE_URL", "/tmp/billing.db")
	t.Setenv("AUTH_REQUIRED", "sometimes")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadDotEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BILLING_RELAY_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BILLING_RELAY_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("BILLING_RELAY_DOTENV_PROBE"))
}

func TestServerWriteTimeoutOutlastsWebhookHandler(t *testing.T) {
	t.Setenv("STORE_URL", "/tmp/billing.db")
	t.Setenv("WEBHOOK_HANDLER_TIMEOUT_SECONDS", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.ServerWriteTimeout())

	t.Setenv("WEBHOOK_HANDLER_TIMEOUT_SECONDS", "30")
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.WebhookHandlerTimeout)
	assert.Equal(t, 35*time.Second, cfg.ServerWriteTimeout())
	assert.Greater(t, cfg.ServerWriteTimeout(), cfg.WebhookHandlerTimeout)
}
