// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package main is the entry point for the Marquee server.
//
// Marquee serves a deterministic featured-content feed: one daily, one
// weekly, and one monthly selection, derived lazily on first request and
// made durable so every instance agrees on the same pick.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered env/file/defaults via Koanf v2
//  2. Database: DuckDB catalog and selection store
//  3. Cache: Badger-backed response cache with TTL policies
//  4. Resolver: deterministic selection resolution
//  5. HTTP server: Chi router under a Suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables prefixed MARQUEE_, a config file
// (config.yaml or CONFIG_PATH), and built-in defaults.
//
// The admin surface is disabled unless MARQUEE_ADMIN_TOKEN is set.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests within the configured
// shutdown timeout, then checkpoints and closes the database and cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/marqueehq/marquee/internal/api"
	"github.com/marqueehq/marquee/internal/audit"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/selection"
	"github.com/marqueehq/marquee/internal/supervisor"
	"github.com/marqueehq/marquee/internal/supervisor/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Bool("admin_enabled", cfg.AdminEnabled()).
		Msg("Starting Marquee")

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	// Hot-reload the log level when the config file changes. Everything else
	// (ports, stores, TTLs) requires a restart.
	if path := config.ConfigFilePath(); path != "" {
		err := config.WatchConfigFile(path, func() {
			reloaded, err := config.LoadWithKoanf()
			if err != nil {
				logging.Warn().Err(err).Msg("Config reload failed, keeping current settings")
				return
			}
			logging.Init(logging.Config{
				Level:     reloaded.Logging.Level,
				Format:    reloaded.Logging.Format,
				Caller:    reloaded.Logging.Caller,
				Timestamp: true,
			})
			logging.Info().Str("level", reloaded.Logging.Level).Msg("Log level reloaded")
		})
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === DATABASE ===

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database ready")

	// === CACHE ===

	store, err := cache.NewBadgerStore(cfg.Cache.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Cache.Path).Msg("Failed to open cache")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	responseCache := cache.New(store, cfg.Cache.DevMode, cfg.Cache.SafePrefixes)
	policy := cache.NewPolicy(&cfg.Cache)
	if cfg.Cache.DevMode {
		logging.Warn().
			Strs("safe_prefixes", cfg.Cache.SafePrefixes).
			Msg("Cache dev mode enabled: reads bypassed except for safe prefixes")
	}

	// === SELECTION RESOLVER ===

	resolver := selection.NewResolver(db, db, db, cfg.Selection.DefaultLocale)

	// === HTTP SERVER ===

	handler := api.NewHandler(db, resolver, responseCache, policy, cfg)

	// === ADMIN AUDIT TRAIL ===

	var auditRecorder *audit.Recorder
	if cfg.AdminEnabled() {
		auditStore := audit.NewDuckDBStore(db.Conn())
		if err := auditStore.CreateTable(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to create audit table, admin audit disabled")
		} else {
			auditRecorder = audit.NewRecorder(auditStore, 256)
			defer func() {
				if err := auditRecorder.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing audit recorder")
				}
			}()
			handler.ConfigureAudit(auditRecorder)
			logging.Info().Msg("Admin audit trail enabled")
		}
	}
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupChi(handler, cfg),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.Slog(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMaintenanceService(services.NewCacheGCService(store, cfg.Cache.GCInterval))
	tree.AddMaintenanceService(newUptimeService())
	if auditRecorder != nil {
		tree.AddMaintenanceService(services.NewAuditRetentionService(auditRecorder, 0, 0))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === SIGNAL HANDLING ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// uptimeService keeps the uptime gauge current.
type uptimeService struct {
	start time.Time
}

func newUptimeService() *uptimeService {
	return &uptimeService{start: time.Now()}
}

func (s *uptimeService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			metrics.AppUptime.Set(time.Since(s.start).Seconds())
		}
	}
}

func (s *uptimeService) String() string { return "uptime-gauge" }
