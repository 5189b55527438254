// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package services

import (
	"context"
	"time"

	"github.com/marqueehq/marquee/internal/logging"
)

// GCRunner matches the cache store's value-log garbage collection entry
// point. Satisfied by *cache.BadgerStore.
type GCRunner interface {
	RunGC() error
}

// CacheGCService periodically runs value-log garbage collection on the
// response cache. Badger never reclaims value-log space on its own; without
// this ticker the cache directory grows monotonically under churn from TTL
// expiry and pattern invalidation.
type CacheGCService struct {
	store    GCRunner
	interval time.Duration
	name     string
}

// NewCacheGCService creates a new cache GC service.
func NewCacheGCService(store GCRunner, interval time.Duration) *CacheGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CacheGCService{
		store:    store,
		interval: interval,
		name:     "cache-gc",
	}
}

// Serve implements suture.Service. GC failures are logged, not returned;
// a failed pass is retried on the next tick rather than restarting the
// service.
func (s *CacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Cache GC pass failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *CacheGCService) String() string {
	return s.name
}
