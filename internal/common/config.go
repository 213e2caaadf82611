package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment  string               `toml:"environment"` // "development" or "production"
	Server       ServerConfig         `toml:"server"`
	Storage      StorageConfig        `toml:"storage"`
	Logging      LoggingConfig        `toml:"logging"`
	Scan         ScanConfig           `toml:"scan"`
	PricingAPI   PricingAPIConfig     `toml:"pricing_api"`
	CostProfiles CostProfileDirConfig `toml:"cost_profiles"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// ScanConfig contains the scan job engine defaults and scheduling behaviour
type ScanConfig struct {
	RatePerSecond     float64 `toml:"rate_per_second"`     // Upstream API calls per second within a scan
	JitterMs          int     `toml:"jitter_ms"`           // Random jitter added to the inter-item pause
	MaxRetries        int     `toml:"max_retries"`         // Recorded on failure rows; retries run as follow-up jobs
	FeeRate           float64 `toml:"fee_rate"`            // Marketplace referral fee rate (default: 0.15)
	MinMarginRequired float64 `toml:"min_margin_required"` // Minimum margin for an opportunity (default: 0.10)
	Schedule          string  `toml:"schedule"`            // Cron schedule for full catalog scans
	ScheduledEnabled  bool    `toml:"scheduled_enabled"`   // Enable scheduled full scans
	StaleAfter        string  `toml:"stale_after"`         // Running jobs older than this are swept to failed (duration string)
}

// PricingAPIConfig contains the marketplace pricing API configuration
type PricingAPIConfig struct {
	BaseURL        string `toml:"base_url"`        // Pricing API base URL
	APIKey         string `toml:"api_key"`         // Pricing API key
	SellerID       string `toml:"seller_id"`       // Our own seller id, used to spot our offer in the offer list
	Marketplace    string `toml:"marketplace"`     // Marketplace identifier (default: "amazon.co.uk")
	RequestTimeout string `toml:"request_timeout"` // HTTP request timeout as duration string
	RateLimit      int    `toml:"rate_limit"`      // Transport-level requests per second cap
}

// CostProfileDirConfig contains configuration for cost profile file loading
type CostProfileDirConfig struct {
	Dir string `toml:"dir"` // Directory containing cost profile files (TOML)
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in buybox.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/buybox",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Scan: ScanConfig{
			RatePerSecond:     2,
			JitterMs:          250,
			MaxRetries:        3,
			FeeRate:           0.15,
			MinMarginRequired: 0.10,
			Schedule:          "0 6 * * *",
			ScheduledEnabled:  false,
			StaleAfter:        "1h",
		},
		PricingAPI: PricingAPIConfig{
			BaseURL:        "https://pricing.buybox.internal/api",
			Marketplace:    "amazon.co.uk",
			RequestTimeout: "30s",
			RateLimit:      5,
		},
		CostProfiles: CostProfileDirConfig{
			Dir: "./profiles",
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path loads defaults plus environment overrides only.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BUYBOX_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("BUYBOX_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("BUYBOX_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("BUYBOX_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("BUYBOX_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("BUYBOX_PRICING_API_KEY"); key != "" {
		config.PricingAPI.APIKey = key
	}
	if baseURL := os.Getenv("BUYBOX_PRICING_BASE_URL"); baseURL != "" {
		config.PricingAPI.BaseURL = baseURL
	}
	if sellerID := os.Getenv("BUYBOX_SELLER_ID"); sellerID != "" {
		config.PricingAPI.SellerID = sellerID
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// RequestTimeoutDuration parses the pricing API request timeout with a fallback
func (c *PricingAPIConfig) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// StaleAfterDuration parses the stale job threshold with a fallback
func (c *ScanConfig) StaleAfterDuration() time.Duration {
	d, err := time.ParseDuration(c.StaleAfter)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
