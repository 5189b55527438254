// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/middleware"
)

// SetupChi builds the full route tree.
//
// The admin group is only mounted when an admin token is configured;
// without one the admin endpoints do not exist at all rather than
// answering 401.
func SetupChi(h *Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// ========================
	// Global Middleware
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	// CORS applied globally to handle OPTIONS preflight
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Use(rateLimit(cfg))

	// ========================
	// Public Endpoints
	// ========================
	r.Get("/", h.Feed)
	r.Get("/items/{id}", h.ItemDetail)
	r.Get("/search", h.Search)

	// ========================
	// Admin Endpoints
	// ========================
	// Mounted only when a token is configured. Admin routes get a stricter
	// per-IP limit on top of the global one.
	if cfg.AdminEnabled() {
		r.Group(func(r chi.Router) {
			r.Use(adminRateLimit(cfg))
			r.Use(AdminAuth(cfg.Security.AdminToken))

			r.Post("/reselect", h.Reselect)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/override-selection", h.OverrideSelection)
				r.Delete("/cleanup-future-selections", h.CleanupFutureSelections)
				r.Get("/preview-selections", h.PreviewSelections)
				r.Put("/items/{id}/translation", h.UpdateTranslation)
				r.Get("/audit", h.AuditLog)
			})
		})
	}

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// ========================
	// Metrics Endpoint
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns the global per-IP request limiter, or a no-op when
// disabled in config.
func rateLimit(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	requests := cfg.Security.RateLimitReqs
	if requests <= 0 {
		requests = 100
	}
	window := cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}

// adminRateLimit throttles the admin group to a quarter of the global
// budget. Admin mutations sweep cache prefixes, so they are kept rare even
// for an authenticated caller.
func adminRateLimit(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	requests := cfg.Security.RateLimitReqs / 4
	if requests <= 0 {
		requests = 25
	}
	window := cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
