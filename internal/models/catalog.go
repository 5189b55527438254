// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package models

import "time"

// DetailLevel selects how much related data an item-detail response carries.
type DetailLevel string

const (
	// DetailBasic returns the item row plus its localized text.
	DetailBasic DetailLevel = "basic"

	// DetailFull additionally includes posters and all translations.
	DetailFull DetailLevel = "full"
)

// ParseDetailLevel converts a string into a DetailLevel, defaulting to basic.
func ParseDetailLevel(s string) DetailLevel {
	if DetailLevel(s) == DetailFull {
		return DetailFull
	}
	return DetailBasic
}

// CatalogItem is one row of the read-only catalog pool.
type CatalogItem struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Year      int       `json:"year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Translation is localized text for a catalog item.
type Translation struct {
	ItemID   int64  `json:"item_id"`
	Locale   string `json:"locale"`
	Title    string `json:"title"`
	Tagline  string `json:"tagline,omitempty"`
	Overview string `json:"overview,omitempty"`
}

// Poster is an image reference for a catalog item.
type Poster struct {
	ItemID  int64  `json:"item_id"`
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	Primary bool   `json:"primary"`
}

// ItemDetail is the full item-detail payload.
type ItemDetail struct {
	Item         CatalogItem   `json:"item"`
	Title        string        `json:"title"`
	Tagline      string        `json:"tagline,omitempty"`
	Overview     string        `json:"overview,omitempty"`
	Locale       string        `json:"locale"`
	Posters      []Poster      `json:"posters,omitempty"`
	Translations []Translation `json:"translations,omitempty"`
	DetailLevel  DetailLevel   `json:"detail_level"`
}

// SearchResult is one page of catalog search results.
type SearchResult struct {
	Items []SearchHit `json:"items"`
	Query string      `json:"query"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int64       `json:"total"`
}

// SearchHit is one matching catalog item with its display title.
type SearchHit struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}
