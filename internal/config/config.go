// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the server.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CORSAllowedOrigins is a comma separated list of browser origins.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// APIBaseURL is the backend REST API root, e.g. https://erp.example.com.
	APIBaseURL         string        `envconfig:"API_BASE_URL" required:"true"`
	UpstreamTimeout    time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	StockLookupTimeout time.Duration `envconfig:"STOCK_LOOKUP_TIMEOUT" default:"10s"`

	DraftTTL     time.Duration `envconfig:"DRAFT_TTL" default:"2h"`
	ReferenceTTL time.Duration `envconfig:"REFERENCE_TTL" default:"5m"`

	// RedisAddr enables the shared reference snapshot cache when set.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	// JWTSecret enables signature verification of incoming bearer tokens when set.
	JWTSecret        string        `envconfig:"JWT_SECRET"`
	TokenRefreshSkew time.Duration `envconfig:"TOKEN_REFRESH_SKEW" default:"2m"`

	ValidationSummaryLimit int `envconfig:"VALIDATION_SUMMARY_LIMIT" default:"5"`
	ParentRequestLimit     int `envconfig:"PARENT_REQUEST_LIMIT" default:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("API_BASE_URL must be an absolute URL")
	}
	if c.ValidationSummaryLimit < 1 {
		return errors.New("VALIDATION_SUMMARY_LIMIT must be positive")
	}
	if c.ParentRequestLimit < 1 {
		return errors.New("PARENT_REQUEST_LIMIT must be positive")
	}
	return nil
}

// IsDevelopment returns true when running in development mode.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
