// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/marqueehq/marquee/internal/audit"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/seed"
	"github.com/marqueehq/marquee/internal/selection"
	"github.com/marqueehq/marquee/internal/validation"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	db       *database.DB
	resolver *selection.Resolver
	cache    *cache.Cache
	policy   *cache.Policy
	config   *config.Config

	// audit is the optional admin-action trail; nil disables recording.
	audit *audit.Recorder

	// reselectLimiter throttles forced re-selections across all callers.
	// Reselect rewrites durable state and sweeps the feed cache, so it gets
	// a server-side budget independent of the per-IP HTTP rate limit.
	reselectLimiter *rate.Limiter

	startTime time.Time

	// now is swapped in tests to pin bucket derivation.
	now func() time.Time
}

// NewHandler creates the handler set backing the router.
func NewHandler(db *database.DB, resolver *selection.Resolver, c *cache.Cache, policy *cache.Policy, cfg *config.Config) *Handler {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute := cfg.Selection.ReselectPerMinute; perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return &Handler{
		db:              db,
		resolver:        resolver,
		cache:           c,
		policy:          policy,
		config:          cfg,
		reselectLimiter: limiter,
		startTime:       time.Now(),
		now:             time.Now,
	}
}

// ConfigureAudit attaches the admin-action audit trail. Must be called
// before the router starts serving.
func (h *Handler) ConfigureAudit(rec *audit.Recorder) {
	h.audit = rec
}

// recordAudit emits one audit event when the trail is configured.
func (h *Handler) recordAudit(r *http.Request, event audit.Event) {
	if h.audit == nil {
		return
	}
	event.RemoteIP = r.RemoteAddr
	h.audit.Record(r.Context(), event)
}

// locale resolves the effective locale for a request.
func (h *Handler) locale(r *http.Request) string {
	locale := strings.TrimSpace(r.URL.Query().Get("locale"))
	if locale == "" {
		return h.config.Selection.DefaultLocale
	}
	return locale
}

// Feed handles GET / - the aggregate selection feed.
//
// All three period kinds are resolved concurrently; a kind with an empty
// catalog pool renders as null rather than failing the feed. The marshaled
// feed payload is cached under a key derived from the three current buckets,
// so a bucket rollover naturally misses the old entry instead of serving a
// stale feed.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	now := h.now().UTC()

	key := cache.FeedKey(
		seed.Bucket(now, models.PeriodDaily),
		seed.Bucket(now, models.PeriodWeekly),
		seed.Bucket(now, models.PeriodMonthly),
		locale,
	)

	if payload, ok := h.cache.Get(key, "feed"); ok {
		h.serveConditional(w, r, payload, h.policy.FeedTTL(), true)
		return
	}

	feed := &models.SelectionFeed{Locale: locale}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		item, err := h.resolver.Resolve(ctx, models.PeriodDaily, now, locale)
		feed.Daily = item
		return err
	})
	g.Go(func() error {
		item, err := h.resolver.Resolve(ctx, models.PeriodWeekly, now, locale)
		feed.Weekly = item
		return err
	})
	g.Go(func() error {
		item, err := h.resolver.Resolve(ctx, models.PeriodMonthly, now, locale)
		feed.Monthly = item
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to resolve selections", err)
		return
	}

	payload, err := json.Marshal(feed)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to encode feed", err)
		return
	}

	h.cache.Put(key, payload, h.policy.FeedTTL())
	h.serveConditional(w, r, payload, h.policy.FeedTTL(), false)
}

// ItemDetail handles GET /items/{id}.
func (h *Handler) ItemDetail(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID < 1 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Item ID must be a positive integer", nil)
		return
	}

	locale := h.locale(r)
	level := models.ParseDetailLevel(r.URL.Query().Get("detail"))
	ttl := h.policy.ItemTTL(level)

	key := cache.ItemKey(itemID, locale, level)
	if payload, ok := h.cache.Get(key, "item"); ok {
		h.serveConditional(w, r, payload, ttl, true)
		return
	}

	detail, err := h.db.GetItemDetail(r.Context(), itemID, locale, h.config.Selection.DefaultLocale, level)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("Item %d not found", itemID), nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load item", err)
		return
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to encode item", err)
		return
	}

	h.cache.Put(key, payload, ttl)
	h.serveConditional(w, r, payload, ttl, false)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req := models.SearchRequest{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Page:  getIntParam(r, "page", 1),
		Limit: getIntParam(r, "limit", 20),
		Year:  getIntParam(r, "year", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	locale := h.locale(r)
	ttl := h.policy.SearchTTL(req)

	key := cache.SearchKey(req) + ":" + locale
	if payload, ok := h.cache.Get(key, "search"); ok {
		h.serveConditional(w, r, payload, ttl, true)
		return
	}

	result, err := h.db.SearchItems(r.Context(), req, locale, h.config.Selection.DefaultLocale)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Search failed", err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to encode search results", err)
		return
	}

	h.cache.Put(key, payload, ttl)
	h.serveConditional(w, r, payload, ttl, false)
}

// Reselect handles POST /reselect - force a fresh pick for one period kind.
func (h *Handler) Reselect(w http.ResponseWriter, r *http.Request) {
	var req models.ReselectRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	if !h.reselectLimiter.Allow() {
		metrics.APIRateLimitHits.WithLabelValues("/reselect").Inc()
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Re-selection budget exhausted, try again later", nil)
		return
	}

	kind, _ := models.ParsePeriodKind(req.PeriodKind)
	item, err := h.resolver.Reselect(r.Context(), kind, h.now().UTC(), req.Locale)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Re-selection failed", err)
		return
	}

	// The durable row has committed; now drop every cached feed so the next
	// read rebuilds from the new selection, plus the picked item's own
	// renderings.
	h.cache.Invalidate(cache.FeedKeyPrefix, "reselect")
	if item != nil {
		h.cache.Invalidate(cache.ItemKeyPattern(item.ID), "reselect")
	}

	auditEvent := audit.Event{Action: "reselect", PeriodKind: string(kind)}
	if item != nil {
		auditEvent.ItemID = item.ID
		auditEvent.Bucket = item.Bucket
	}
	h.recordAudit(r, auditEvent)

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"period_kind": kind,
		"item":        item,
	})
}

// serveConditional writes payload with an ETag and honors If-None-Match.
// The ETag deliberately covers the data payload, not the envelope: the
// envelope's meta fields (request ID, timestamp) change on every request,
// so two responses with equal tags carry identical data but different
// envelope bytes. Hashing the payload keeps the tag stable across requests
// for identical content, which is what makes 304 revalidation work at all.
func (h *Handler) serveConditional(w http.ResponseWriter, r *http.Request, payload []byte, ttl time.Duration, fromCache bool) {
	etag := cache.ETagFor(payload)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))

	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		metrics.APINotModifiedTotal.WithLabelValues(routePattern(r)).Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	respondCachedJSON(w, r, http.StatusOK, payload, fromCache)
}

// etagMatches implements the weak subset of If-None-Match handling the
// service needs: a wildcard or any listed value equal to the current tag.
func etagMatches(header, etag string) bool {
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// decodeBody decodes a JSON request body, responding with 400 on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON request body", err)
		return false
	}
	return true
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v interface{}) *validation.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	return validationErr.ToAPIError()
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		logging.Debug().Str("param", key).Str("value", value).Msg("Ignoring malformed integer parameter")
		return defaultValue
	}
	return intValue
}
