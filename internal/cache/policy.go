// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package cache

import (
	"time"

	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/models"
)

// Policy maps payload classes to their static TTLs. TTLs are a property of
// the payload class, never of the individual request: slow-moving payloads
// (monthly feeds, full item details) live long, volatile ones (filtered
// searches) expire quickly.
type Policy struct {
	feedDaily      time.Duration
	feedWeekly     time.Duration
	feedMonthly    time.Duration
	itemBasic      time.Duration
	itemFull       time.Duration
	searchFiltered time.Duration
	searchBare     time.Duration
}

// NewPolicy builds the TTL policy from configuration, substituting defaults
// for unset values.
func NewPolicy(cfg *config.CacheConfig) *Policy {
	p := &Policy{
		feedDaily:      cfg.FeedDailyTTL,
		feedWeekly:     cfg.FeedWeeklyTTL,
		feedMonthly:    cfg.FeedMonthlyTTL,
		itemBasic:      cfg.ItemBasicTTL,
		itemFull:       cfg.ItemFullTTL,
		searchFiltered: cfg.SearchFilteredTTL,
		searchBare:     cfg.SearchBareTTL,
	}

	setDefault(&p.feedDaily, time.Hour)
	setDefault(&p.feedWeekly, 6*time.Hour)
	setDefault(&p.feedMonthly, 24*time.Hour)
	setDefault(&p.itemBasic, time.Hour)
	setDefault(&p.itemFull, 24*time.Hour)
	setDefault(&p.searchFiltered, 5*time.Minute)
	setDefault(&p.searchBare, 30*time.Minute)

	return p
}

func setDefault(d *time.Duration, fallback time.Duration) {
	if *d <= 0 {
		*d = fallback
	}
}

// FeedTTL returns the TTL for the aggregate feed entry: the shortest of the
// per-period feed TTLs, since the entry embeds all three periods.
func (p *Policy) FeedTTL() time.Duration {
	ttl := p.feedDaily
	if p.feedWeekly < ttl {
		ttl = p.feedWeekly
	}
	if p.feedMonthly < ttl {
		ttl = p.feedMonthly
	}
	return ttl
}

// PeriodFeedTTL returns the TTL for a single-period feed payload.
func (p *Policy) PeriodFeedTTL(kind models.PeriodKind) time.Duration {
	switch kind {
	case models.PeriodWeekly:
		return p.feedWeekly
	case models.PeriodMonthly:
		return p.feedMonthly
	default:
		return p.feedDaily
	}
}

// ItemTTL returns the TTL for an item detail payload.
func (p *Policy) ItemTTL(level models.DetailLevel) time.Duration {
	if level == models.DetailFull {
		return p.itemFull
	}
	return p.itemBasic
}

// SearchTTL returns the TTL for a search page. Filtered searches (any
// constraint beyond the bare query) are more volatile and expire sooner.
func (p *Policy) SearchTTL(req models.SearchRequest) time.Duration {
	if req.Year > 0 {
		return p.searchFiltered
	}
	return p.searchBare
}
