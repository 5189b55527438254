// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package cache

import (
	"fmt"
	"strings"

	"github.com/marqueehq/marquee/internal/models"
)

// Key prefixes. Pattern invalidation matches on substrings, so every key
// class carries a distinct stable prefix that callers can sweep.
const (
	// FeedKeyPrefix covers every cached selection feed rendering.
	FeedKeyPrefix = "selections:all:"

	// ItemKeyPrefix covers cached item detail payloads.
	ItemKeyPrefix = "item:"

	// SearchKeyPrefix covers cached search result pages.
	SearchKeyPrefix = "search:"
)

// FeedKey builds the cache key for the aggregate selection feed. The three
// bucket dates are part of the key, so a bucket rollover naturally starts
// populating a fresh entry instead of requiring invalidation.
func FeedKey(dailyBucket, weeklyBucket, monthlyBucket, locale string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", FeedKeyPrefix, dailyBucket, weeklyBucket, monthlyBucket, locale)
}

// ItemKey builds the cache key for one item detail rendering.
func ItemKey(itemID int64, locale string, level models.DetailLevel) string {
	return fmt.Sprintf("%s%d:%s:%s", ItemKeyPrefix, itemID, locale, level)
}

// ItemKeyPattern returns the invalidation pattern matching every cached
// rendering of one item across locales and detail levels.
func ItemKeyPattern(itemID int64) string {
	return fmt.Sprintf("%s%d:", ItemKeyPrefix, itemID)
}

// SearchKey builds the cache key for one search result page. The query is
// normalized so trivially different spellings share an entry.
func SearchKey(req models.SearchRequest) string {
	query := strings.ToLower(strings.TrimSpace(req.Query))
	return fmt.Sprintf("%s%s:%d:%d:%d", SearchKeyPrefix, query, req.Page, req.Limit, req.Year)
}
