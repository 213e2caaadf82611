package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 2.0, cfg.Scan.RatePerSecond)
	assert.Equal(t, 250, cfg.Scan.JitterMs)
	assert.Equal(t, 3, cfg.Scan.MaxRetries)
	assert.Equal(t, 0.15, cfg.Scan.FeeRate)
	assert.Equal(t, 0.10, cfg.Scan.MinMarginRequired)
	assert.Equal(t, "amazon.co.uk", cfg.PricingAPI.Marketplace)
	assert.False(t, cfg.Scan.ScheduledEnabled)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buybox.toml")
	content := `
environment = "production"

[server]
port = 9000

[scan]
rate_per_second = 0.5
jitter_ms = 100
scheduled_enabled = true
schedule = "30 5 * * *"
stale_after = "45m"

[pricing_api]
base_url = "https://pricing.example.com"
seller_id = "SELLER-ME"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Scan.RatePerSecond)
	assert.Equal(t, 100, cfg.Scan.JitterMs)
	assert.True(t, cfg.Scan.ScheduledEnabled)
	assert.Equal(t, 45*time.Minute, cfg.Scan.StaleAfterDuration())
	assert.Equal(t, "https://pricing.example.com", cfg.PricingAPI.BaseURL)
	assert.Equal(t, "SELLER-ME", cfg.PricingAPI.SellerID)

	// Untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Scan.MaxRetries)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("BUYBOX_SERVER_PORT", "9999")
	t.Setenv("BUYBOX_PRICING_API_KEY", "env-secret")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.PricingAPI.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 7070, "0.0.0.0")

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Zero values leave the config untouched
	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestDurationFallbacks(t *testing.T) {
	scan := &ScanConfig{StaleAfter: "garbage"}
	assert.Equal(t, time.Hour, scan.StaleAfterDuration())

	api := &PricingAPIConfig{RequestTimeout: ""}
	assert.Equal(t, 30*time.Second, api.RequestTimeoutDuration())
}
