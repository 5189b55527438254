// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Selection resolution outcomes
// - Cache efficiency (Badger)
// - Circuit breaker state

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Updated on each health-check ping from the sql.DB pool stats.
	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of open database connections in the pool",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Conditional request metrics: 304 responses served off a matching ETag.
	APINotModifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_not_modified_total",
			Help: "Total number of 304 Not Modified responses",
		},
		[]string{"endpoint"},
	)

	// Selection Metrics
	SelectionResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_resolutions_total",
			Help: "Total number of selection resolutions",
		},
		[]string{"period_kind", "outcome"}, // outcome: "existing", "created", "adopted", "empty_pool"
	)

	SelectionResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "selection_resolution_duration_seconds",
			Help:    "Duration of selection resolutions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period_kind"},
	)

	SelectionOverrides = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_overrides_total",
			Help: "Total number of admin selection overrides",
		},
		[]string{"period_kind"},
	)

	SelectionReselects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_reselects_total",
			Help: "Total number of forced re-selections",
		},
		[]string{"period_kind"},
	)

	SelectionCleanupDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_cleanup_deletions_total",
			Help: "Total number of future selections deleted by cleanup",
		},
		[]string{"period_kind"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "feed", "item", "search"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Refreshed by the periodic cache GC sweep.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of live cache entries",
		},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or invalidation)",
		},
		[]string{"cache_type"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of pattern invalidation sweeps",
		},
		[]string{"reason"}, // "override", "reselect", "cleanup", "translation"
	)

	CacheBypass = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_bypass_total",
			Help: "Total number of reads that bypassed the cache (dev mode)",
		},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache backend errors (degraded to miss)",
		},
		[]string{"operation"}, // "get", "put", "delete", "scan"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSelectionResolution records one resolution and its outcome
func RecordSelectionResolution(periodKind, outcome string, duration time.Duration) {
	SelectionResolutions.WithLabelValues(periodKind, outcome).Inc()
	SelectionResolutionDuration.WithLabelValues(periodKind).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit for the given cache type
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCacheInvalidation records a pattern invalidation sweep and the number
// of entries it removed
func RecordCacheInvalidation(reason string, removed int) {
	CacheInvalidations.WithLabelValues(reason).Inc()
	if removed > 0 {
		CacheEvictions.WithLabelValues("pattern").Add(float64(removed))
	}
}

// RecordCacheError records a cache backend failure that degraded to a miss
func RecordCacheError(operation string) {
	CacheErrors.WithLabelValues(operation).Inc()
}
