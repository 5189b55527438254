// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 200 OK only when the database answers a ping; the cache layer is
// deliberately excluded because reads degrade to misses when it fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Database is not reachable", nil)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"ready":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}
