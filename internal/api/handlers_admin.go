// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Admin surface: explicit overrides, future-selection cleanup, previews, and
// translation edits. Every mutation invalidates the affected cache prefixes
// only after its database write has committed, so a concurrent reader can
// never repopulate the cache from pre-write state.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marqueehq/marquee/internal/audit"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/selection"
)

// OverrideSelection handles POST /admin/override-selection.
func (h *Handler) OverrideSelection(w http.ResponseWriter, r *http.Request) {
	var req models.OverrideSelectionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	kind, _ := models.ParsePeriodKind(req.PeriodKind)
	bucket, err := h.resolver.Override(r.Context(), kind, req.BucketDate, req.ItemID)
	if err != nil {
		if errors.Is(err, selection.ErrItemNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("Item %d not found", req.ItemID), nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Override failed", err)
		return
	}

	h.cache.Invalidate(cache.FeedKeyPrefix, "override")
	h.recordAudit(r, audit.Event{
		Action:     "override",
		PeriodKind: string(kind),
		Bucket:     bucket,
		ItemID:     req.ItemID,
	})

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"period_kind": kind,
		"bucket":      bucket,
		"item_id":     req.ItemID,
	})
}

// CleanupFutureSelections handles DELETE /admin/cleanup-future-selections.
//
// Selections in buckets after the current ones are deleted for every period
// kind; current selections stay untouched. Deleted buckets re-derive the same
// pick on their next resolution unless the catalog changed in between.
func (h *Handler) CleanupFutureSelections(w http.ResponseWriter, r *http.Request) {
	result, err := h.resolver.Cleanup(r.Context(), h.now().UTC())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Cleanup failed", err)
		return
	}

	if result.Total > 0 {
		h.cache.Invalidate(cache.FeedKeyPrefix, "cleanup")
	}
	h.recordAudit(r, audit.Event{
		Action: "cleanup",
		Detail: fmt.Sprintf("%d future selections removed", result.Total),
	})

	respondJSON(w, r, http.StatusOK, result)
}

// PreviewSelections handles GET /admin/preview-selections.
//
// Read-only: nothing is written and nothing is invalidated, so previewing
// never disturbs what users currently see.
func (h *Handler) PreviewSelections(w http.ResponseWriter, r *http.Request) {
	previews, err := h.resolver.Preview(r.Context(), h.now().UTC(), h.locale(r))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Preview failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"previews": previews,
	})
}

// UpdateTranslation handles PUT /admin/items/{id}/translation.
func (h *Handler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID < 1 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Item ID must be a positive integer", nil)
		return
	}

	var req models.TranslationUpdateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	tr := models.Translation{
		ItemID:   itemID,
		Locale:   req.Locale,
		Title:    req.Title,
		Tagline:  req.Tagline,
		Overview: req.Overview,
	}
	if err := h.db.UpsertTranslation(r.Context(), tr); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("Item %d not found", itemID), nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Translation update failed", err)
		return
	}

	// The item's cached renderings and any feed featuring it are now stale.
	h.cache.Invalidate(cache.ItemKeyPattern(itemID), "translation")
	h.cache.Invalidate(cache.FeedKeyPrefix, "translation")
	h.recordAudit(r, audit.Event{
		Action: "translation",
		ItemID: itemID,
		Detail: fmt.Sprintf("locale %s updated", req.Locale),
	})

	respondJSON(w, r, http.StatusOK, tr)
}

// AuditLog handles GET /admin/audit - the recent admin-action trail.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Audit trail is not configured", nil)
		return
	}

	events, err := h.audit.List(r.Context(), getIntParam(r, "limit", 100))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load audit trail", err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
