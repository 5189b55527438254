// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package config defines the service configuration and loads it from layered
// sources with Koanf v2: built-in defaults, an optional YAML file, and
// environment variables, in ascending precedence.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Selection SelectionConfig `koanf:"selection"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8480)
//   - HTTP_HOST: Listen host (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Request timeout (default: 30s)
//   - ENVIRONMENT: "development" or "production"
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the catalog and selection store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// CacheConfig holds settings for the Badger-backed response cache.
//
// DevMode bypasses reads for every key that does not carry one of the
// SafePrefixes, so developers always see fresh data while stable lookups
// stay memoized. Writes still happen in dev mode; only reads are skipped.
type CacheConfig struct {
	Path         string        `koanf:"path"`
	DevMode      bool          `koanf:"dev_mode"`
	SafePrefixes []string      `koanf:"safe_prefixes"`
	GCInterval   time.Duration `koanf:"gc_interval"`

	// TTLs per payload class. Zero values fall back to defaults.
	FeedDailyTTL      time.Duration `koanf:"feed_daily_ttl"`
	FeedWeeklyTTL     time.Duration `koanf:"feed_weekly_ttl"`
	FeedMonthlyTTL    time.Duration `koanf:"feed_monthly_ttl"`
	ItemBasicTTL      time.Duration `koanf:"item_basic_ttl"`
	ItemFullTTL       time.Duration `koanf:"item_full_ttl"`
	SearchFilteredTTL time.Duration `koanf:"search_filtered_ttl"`
	SearchBareTTL     time.Duration `koanf:"search_bare_ttl"`
}

// SelectionConfig holds settings for deterministic selection resolution.
type SelectionConfig struct {
	DefaultLocale string `koanf:"default_locale"`

	// ReselectPerMinute bounds forced re-selections server-wide. Zero
	// disables the throttle.
	ReselectPerMinute int `koanf:"reselect_per_minute"`
}

// SecurityConfig holds admin access and rate limit settings.
//
// The admin surface is guarded by a static bearer token. Leaving AdminToken
// empty disables the admin routes entirely rather than leaving them open.
type SecurityConfig struct {
	AdminToken        string        `koanf:"admin_token"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout < time.Second {
		return fmt.Errorf("HTTP_TIMEOUT must be at least 1s, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database threads must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Path == "" {
		return fmt.Errorf("CACHE_PATH must not be empty")
	}
	for _, prefix := range c.Cache.SafePrefixes {
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("cache safe_prefixes must not contain empty entries")
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.AdminToken != "" && len(c.Security.AdminToken) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters when set")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// AdminEnabled reports whether the admin surface should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.Security.AdminToken != ""
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
