// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsLoadAndValidate(t *testing.T) {
	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf with defaults: %v", err)
	}

	if cfg.Server.Port != 8480 {
		t.Errorf("default port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Cache.FeedDailyTTL != time.Hour {
		t.Errorf("default daily feed TTL = %s, want 1h", cfg.Cache.FeedDailyTTL)
	}
	if cfg.Cache.FeedMonthlyTTL != 24*time.Hour {
		t.Errorf("default monthly feed TTL = %s, want 24h", cfg.Cache.FeedMonthlyTTL)
	}
	if cfg.AdminEnabled() {
		t.Error("admin surface enabled without a token")
	}
	if cfg.IsProduction() {
		t.Error("default environment is production, want development")
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CACHE_DEV_MODE", "true")
	t.Setenv("ADMIN_TOKEN", "0123456789abcdef0123")
	t.Setenv("DEFAULT_LOCALE", "de")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000 from env", cfg.Server.Port)
	}
	if !cfg.Cache.DevMode {
		t.Error("dev mode not picked up from env")
	}
	if !cfg.AdminEnabled() {
		t.Error("admin surface disabled despite ADMIN_TOKEN")
	}
	if cfg.Selection.DefaultLocale != "de" {
		t.Errorf("default locale = %q, want de", cfg.Selection.DefaultLocale)
	}
}

func TestEnvPrefixedVariables(t *testing.T) {
	t.Setenv("MARQUEE_ADMIN_TOKEN", "0123456789abcdef0123")
	t.Setenv("MARQUEE_HTTP_PORT", "9100")
	t.Setenv("MARQUEE_CACHE__DEV_MODE", "true")
	t.Setenv("MARQUEE_SERVER__SHUTDOWN_TIMEOUT", "45s")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if !cfg.AdminEnabled() {
		t.Error("admin surface disabled despite MARQUEE_ADMIN_TOKEN")
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100 from MARQUEE_HTTP_PORT", cfg.Server.Port)
	}
	if !cfg.Cache.DevMode {
		t.Error("dev mode not picked up from MARQUEE_CACHE__DEV_MODE")
	}
	if cfg.Server.ShutdownTimeout != 45*time.Second {
		t.Errorf("shutdown timeout = %s, want 45s from nested env var", cfg.Server.ShutdownTimeout)
	}
}

func TestEnvUnprefixedRandomKeysIgnored(t *testing.T) {
	t.Setenv("SERVER__PORT", "9999")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 8480 {
		t.Errorf("port = %d, nested form without MARQUEE_ prefix must be ignored", cfg.Server.Port)
	}
}

func TestEnvSliceSplitting(t *testing.T) {
	t.Setenv("CACHE_SAFE_PREFIXES", "static:, locale:,assets:")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	want := []string{"static:", "locale:", "assets:"}
	if len(cfg.Cache.SafePrefixes) != len(want) {
		t.Fatalf("safe prefixes = %v, want %v", cfg.Cache.SafePrefixes, want)
	}
	for i, p := range want {
		if cfg.Cache.SafePrefixes[i] != p {
			t.Errorf("safe prefix[%d] = %q, want %q", i, cfg.Cache.SafePrefixes[i], p)
		}
	}
}

func TestConfigFileLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7700\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if cfg.Server.Port != 7700 {
		t.Errorf("port = %d, want 7700 from file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug from file", cfg.Logging.Level)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7700\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7900")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 7900 {
		t.Errorf("port = %d, want env value 7900 over file value", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"empty cache path", func(c *Config) { c.Cache.Path = "" }},
		{"blank safe prefix", func(c *Config) { c.Cache.SafePrefixes = []string{"static:", " "} }},
		{"short admin token", func(c *Config) { c.Security.AdminToken = "short" }},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestValidateAllowsDisabledRateLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.RateLimitDisabled = true
	cfg.Security.RateLimitReqs = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected disabled rate limit: %v", err)
	}
}
