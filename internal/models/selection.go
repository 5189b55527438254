// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package models

import "time"

// SelectionRecord is the persisted (period kind, bucket) -> item mapping.
// It is the single source of truth for "what was featured": the cache layer
// only memoizes enriched renderings of it.
//
// At most one record exists per (PeriodKind, Bucket) pair. A uniqueness
// violation during concurrent creation is expected and recovered by adopting
// the winning row, never surfaced as an error.
type SelectionRecord struct {
	PeriodKind PeriodKind `json:"period_kind"`
	Bucket     string     `json:"bucket"`
	ItemID     int64      `json:"item_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FeaturedItem is the enriched payload for one selected catalog item.
type FeaturedItem struct {
	ID        int64  `json:"id"`
	Bucket    string `json:"bucket"`
	Title     string `json:"title"`
	Tagline   string `json:"tagline,omitempty"`
	Overview  string `json:"overview,omitempty"`
	Year      int    `json:"year,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
	Locale    string `json:"locale"`
}

// SelectionFeed is the aggregate daily/weekly/monthly response for GET /.
// A period that could not resolve (empty catalog) is null, not an error:
// the feed is always well-formed.
type SelectionFeed struct {
	Daily   *FeaturedItem `json:"daily"`
	Weekly  *FeaturedItem `json:"weekly"`
	Monthly *FeaturedItem `json:"monthly"`
	Locale  string        `json:"locale"`
}

// PreviewedSelection is one read-only next-bucket simulation result.
type PreviewedSelection struct {
	PeriodKind PeriodKind    `json:"period_kind"`
	Bucket     string        `json:"bucket"`
	Item       *FeaturedItem `json:"item"`
}

// CleanupResult reports per-kind deletion counts from the
// cleanup-future-selections admin operation.
type CleanupResult struct {
	Deleted map[PeriodKind]int64 `json:"deleted"`
	Total   int64                `json:"total"`
}
