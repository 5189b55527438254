// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/selection"
)

const testAdminToken = "test-admin-token-0123456789"

type testStack struct {
	handler *Handler
	router  http.Handler
	db      *database.DB
	store   *cache.MemoryStore
	cfg     *config.Config
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Path:      filepath.Join(t.TempDir(), "test.duckdb"),
			MaxMemory: "256MB",
			Threads:   2,
		},
		Selection: config.SelectionConfig{
			DefaultLocale:     "en",
			ReselectPerMinute: 60,
		},
		Security: config.SecurityConfig{
			AdminToken:        testAdminToken,
			RateLimitDisabled: true,
		},
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	store := cache.NewMemoryStore()
	c := cache.New(store, false, nil)
	policy := cache.NewPolicy(&cfg.Cache)
	resolver := selection.NewResolver(db, db, db, cfg.Selection.DefaultLocale)

	handler := NewHandler(db, resolver, c, policy, cfg)
	handler.now = func() time.Time {
		return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	}

	return &testStack{
		handler: handler,
		router:  SetupChi(handler, cfg),
		db:      db,
		store:   store,
		cfg:     cfg,
	}
}

func (s *testStack) seedItem(t *testing.T, slug, title string, year int) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := s.db.InsertItem(ctx, slug, year)
	if err != nil {
		t.Fatalf("failed to insert item %s: %v", slug, err)
	}
	err = s.db.UpsertTranslation(ctx, models.Translation{
		ItemID: id,
		Locale: "en",
		Title:  title,
	})
	if err != nil {
		t.Fatalf("failed to insert translation for %s: %v", slug, err)
	}
	return id
}

func (s *testStack) do(t *testing.T, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	return &resp
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func TestFeedResolvesAllPeriods(t *testing.T) {
	s := newTestStack(t)
	s.seedItem(t, "alpha", "Alpha", 2020)
	s.seedItem(t, "beta", "Beta", 2021)
	s.seedItem(t, "gamma", "Gamma", 2022)

	rec := s.do(t, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}

	data, _ := json.Marshal(resp.Data)
	var feed models.SelectionFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		t.Fatalf("failed to decode feed: %v", err)
	}
	if feed.Daily == nil || feed.Weekly == nil || feed.Monthly == nil {
		t.Fatalf("feed has nil periods: %+v", feed)
	}
	if feed.Locale != "en" {
		t.Errorf("locale = %q, want en", feed.Locale)
	}
	if feed.Daily.Bucket == "" {
		t.Error("daily selection missing bucket")
	}
}

func TestFeedDeterministicAcrossRequests(t *testing.T) {
	s := newTestStack(t)
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		s.seedItem(t, slug, "Title "+slug, 2020)
	}

	first := s.do(t, http.MethodGet, "/", nil, nil)
	second := s.do(t, http.MethodGet, "/", nil, nil)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d", first.Code, second.Code)
	}
	if first.Header().Get("ETag") != second.Header().Get("ETag") {
		t.Errorf("ETag changed between identical requests: %q vs %q",
			first.Header().Get("ETag"), second.Header().Get("ETag"))
	}
}

func TestFeedEmptyCatalog(t *testing.T) {
	s := newTestStack(t)

	rec := s.do(t, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	data, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	var feed models.SelectionFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		t.Fatalf("failed to decode feed: %v", err)
	}
	if feed.Daily != nil || feed.Weekly != nil || feed.Monthly != nil {
		t.Errorf("expected all-null feed on empty catalog, got %+v", feed)
	}
}

func TestFeedNotModified(t *testing.T) {
	s := newTestStack(t)
	s.seedItem(t, "alpha", "Alpha", 2020)

	first := s.do(t, http.MethodGet, "/", nil, nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on feed response")
	}

	second := s.do(t, http.MethodGet, "/", nil, map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", second.Code)
	}
	if second.Body.Len() != 0 {
		t.Errorf("304 response carries a body: %s", second.Body.String())
	}

	stale := s.do(t, http.MethodGet, "/", nil, map[string]string{"If-None-Match": `"deadbeef"`})
	if stale.Code != http.StatusOK {
		t.Errorf("stale ETag status = %d, want 200", stale.Code)
	}
}

func TestItemDetailBasicAndFull(t *testing.T) {
	s := newTestStack(t)
	id := s.seedItem(t, "alpha", "Alpha", 2020)

	rec := s.do(t, http.MethodGet, "/items/1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("basic status = %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	var detail models.ItemDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("failed to decode detail: %v", err)
	}
	if detail.Item.ID != id || detail.Title != "Alpha" {
		t.Errorf("detail = %+v", detail)
	}
	if detail.DetailLevel != models.DetailBasic {
		t.Errorf("detail level = %q, want basic", detail.DetailLevel)
	}

	rec = s.do(t, http.MethodGet, "/items/1?detail=full", nil, nil)
	data, _ = json.Marshal(decodeEnvelope(t, rec).Data)
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("failed to decode full detail: %v", err)
	}
	if detail.DetailLevel != models.DetailFull {
		t.Errorf("detail level = %q, want full", detail.DetailLevel)
	}
	if len(detail.Translations) != 1 {
		t.Errorf("translations = %d, want 1", len(detail.Translations))
	}
}

func TestItemDetailErrors(t *testing.T) {
	s := newTestStack(t)
	s.seedItem(t, "alpha", "Alpha", 2020)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{"unknown item", "/items/999", http.StatusNotFound, ErrCodeNotFound},
		{"malformed id", "/items/abc", http.StatusBadRequest, ErrCodeBadRequest},
		{"zero id", "/items/0", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, nil, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	s := newTestStack(t)
	s.seedItem(t, "dark-knight", "The Dark Knight", 2008)
	s.seedItem(t, "dark-city", "Dark City", 1998)
	s.seedItem(t, "amelie", "Amelie", 2001)

	rec := s.do(t, http.MethodGet, "/search?q=dark", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := json.Marshal(decodeEnvelope(t, rec).Data)
	var result models.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("total = %d, want 2", result.Total)
	}

	rec = s.do(t, http.MethodGet, "/search?q=dark&year=2008", nil, nil)
	data, _ = json.Marshal(decodeEnvelope(t, rec).Data)
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode filtered result: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("filtered total = %d, want 1", result.Total)
	}
}

func TestSearchValidation(t *testing.T) {
	s := newTestStack(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing query", "/search"},
		{"limit too large", "/search?q=x&limit=500"},
		{"zero page", "/search?q=x&page=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, nil, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Errorf("error = %+v, want VALIDATION_FAILED", resp.Error)
			}
		})
	}
}

func TestReselectReplacesAndInvalidates(t *testing.T) {
	s := newTestStack(t)
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		s.seedItem(t, slug, "Title "+slug, 2020)
	}

	// Populate the feed cache first.
	if rec := s.do(t, http.MethodGet, "/", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	before := s.store.Len()
	if before == 0 {
		t.Fatal("feed was not cached")
	}

	rec := s.do(t, http.MethodPost, "/reselect", models.ReselectRequest{PeriodKind: "daily"}, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if s.store.Len() != 0 {
		t.Errorf("feed cache entries remain after reselect: %d", s.store.Len())
	}
}

func TestReselectRequiresToken(t *testing.T) {
	s := newTestStack(t)
	s.seedItem(t, "alpha", "Alpha", 2020)

	rec := s.do(t, http.MethodPost, "/reselect", models.ReselectRequest{PeriodKind: "daily"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestReselectValidation(t *testing.T) {
	s := newTestStack(t)

	rec := s.do(t, http.MethodPost, "/reselect", models.ReselectRequest{PeriodKind: "hourly"}, adminHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want VALIDATION_FAILED", resp.Error)
	}
}

func TestReselectRateLimited(t *testing.T) {
	s := newTestStack(t)
	s.seedItem(t, "alpha", "Alpha", 2020)
	s.cfg.Selection.ReselectPerMinute = 1
	s.handler = NewHandler(s.handler.db, s.handler.resolver, s.handler.cache, s.handler.policy, s.cfg)
	s.router = SetupChi(s.handler, s.cfg)

	first := s.do(t, http.MethodPost, "/reselect", models.ReselectRequest{PeriodKind: "daily"}, adminHeaders())
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d: %s", first.Code, first.Body.String())
	}

	second := s.do(t, http.MethodPost, "/reselect", models.ReselectRequest{PeriodKind: "daily"}, adminHeaders())
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	resp := decodeEnvelope(t, second)
	if resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want TOO_MANY_REQUESTS", resp.Error)
	}
}
