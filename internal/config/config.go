// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/msomdec/startup-scout/internal/domain"
)

// Prefix is prepended to every variable name, e.g. SCOUT_API_URL.
const Prefix = "SCOUT"

// Config holds all runtime settings.
type Config struct {
	APIURL        string        `envconfig:"API_URL" default:"http://localhost:8000/api"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"10s"`
	DatabasePath  string        `envconfig:"DATABASE_PATH" default:"startup-scout.db"`
	StorageSecret string        `envconfig:"STORAGE_SECRET"`
	ListenAddr    string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	// Default to secure cookies; disable only for local development.
	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"true"`

	// Settings for the in-process demo backend.
	DemoJWTSecret  string `envconfig:"DEMO_JWT_SECRET"`
	DemoBcryptCost int    `envconfig:"DEMO_BCRYPT_COST" default:"10"`
}

// Load reads the given .env files (default ".env"; a missing file is not an
// error) and then decodes SCOUT_* variables into a validated Config.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that envconfig cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s_API_URL must be an absolute http(s) URL, got %q", domain.ErrInvalidInput, Prefix, c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: %s_TIMEOUT must be positive", domain.ErrInvalidInput, Prefix)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: %s_DATABASE_PATH is required", domain.ErrInvalidInput, Prefix)
	}
	if c.StorageSecret != "" && len(c.StorageSecret) < 16 {
		return fmt.Errorf("%w: %s_STORAGE_SECRET must be at least 16 characters", domain.ErrInvalidInput, Prefix)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.DemoJWTSecret != "" && len(c.DemoJWTSecret) < 32 {
		return fmt.Errorf("%w: %s_DEMO_JWT_SECRET must be at least 32 characters for HMAC-SHA256 security", domain.ErrInvalidInput, Prefix)
	}
	if c.DemoBcryptCost < 4 || c.DemoBcryptCost > 14 {
		return fmt.Errorf("%w: %s_DEMO_BCRYPT_COST must be between 4 and 14, got %d", domain.ErrInvalidInput, Prefix, c.DemoBcryptCost)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: %s_LOG_LEVEL: %v", domain.ErrInvalidInput, Prefix, err)
	}
	return level, nil
}
