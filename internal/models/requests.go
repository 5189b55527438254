// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package models

// Request structs for the HTTP surface. Validation tags are enforced by
// internal/validation before any store or cache interaction; periodkind and
// bucketdate are custom validators registered there.

// FeedRequest carries parameters for the aggregate selection feed.
type FeedRequest struct {
	Locale string `json:"locale" validate:"omitempty,min=2,max=16"`
}

// ReselectRequest forces a new pick for one period kind.
type ReselectRequest struct {
	PeriodKind string `json:"period_kind" validate:"required,periodkind"`
	Locale     string `json:"locale" validate:"omitempty,min=2,max=16"`
}

// OverrideSelectionRequest sets an explicit item for a bucket date.
type OverrideSelectionRequest struct {
	PeriodKind string `json:"period_kind" validate:"required,periodkind"`
	BucketDate string `json:"bucket_date" validate:"required,bucketdate"`
	ItemID     int64  `json:"item_id" validate:"required,min=1"`
}

// SearchRequest carries catalog search parameters.
type SearchRequest struct {
	Query string `json:"query" validate:"required,min=1,max=256"`
	Page  int    `json:"page" validate:"min=1,max=10000"`
	Limit int    `json:"limit" validate:"min=1,max=100"`
	Year  int    `json:"year" validate:"omitempty,min=1870,max=2100"`
}

// TranslationUpdateRequest edits localized text for an item. Used by the
// admin surface; committing it invalidates the item's cache keys and the
// aggregate feed prefix.
type TranslationUpdateRequest struct {
	Locale   string `json:"locale" validate:"required,min=2,max=16"`
	Title    string `json:"title" validate:"required,min=1,max=512"`
	Tagline  string `json:"tagline" validate:"max=1024"`
	Overview string `json:"overview" validate:"max=8192"`
}
