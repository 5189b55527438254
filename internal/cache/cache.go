// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package cache provides the response cache layer: deterministic key
// construction, a static TTL policy, ETag computation, and pattern
// invalidation over a Badger-backed store.
//
// The cache memoizes enriched renderings only. The selections table in the
// database remains the source of truth; on any cache failure reads degrade
// to a miss and the caller recomputes from the database.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/seed"
)

// Store is the backend contract. Implementations must treat keys as opaque
// strings and honor per-entry TTLs.
type Store interface {
	// Get returns the stored value and whether it was present and fresh.
	Get(key string) ([]byte, bool, error)

	// Put stores a value with the given TTL. A zero TTL stores without expiry.
	Put(key string, value []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting an absent key is not an error.
	Delete(key string) error

	// DeleteByPattern removes every key containing the pattern as a
	// substring, returning the number of keys removed.
	DeleteByPattern(pattern string) (int, error)

	// Close releases backend resources.
	Close() error
}

// Cache wraps a Store with the service's read/write policy: dev-mode read
// bypass with safe-prefix exemptions, metrics, and degrade-to-miss on
// backend errors.
type Cache struct {
	store        Store
	devMode      bool
	safePrefixes []string
}

// New builds the policy wrapper around a store.
func New(store Store, devMode bool, safePrefixes []string) *Cache {
	return &Cache{
		store:        store,
		devMode:      devMode,
		safePrefixes: safePrefixes,
	}
}

// Get reads a key, applying the dev-mode bypass. The cacheType label is used
// for hit/miss metrics. Backend errors are absorbed: the caller sees a miss
// and recomputes, it never sees a cache failure.
func (c *Cache) Get(key, cacheType string) ([]byte, bool) {
	if c.bypass(key) {
		metrics.CacheBypass.Inc()
		return nil, false
	}

	value, ok, err := c.store.Get(key)
	if err != nil {
		metrics.RecordCacheError("get")
		return nil, false
	}
	if !ok {
		metrics.RecordCacheMiss(cacheType)
		return nil, false
	}
	metrics.RecordCacheHit(cacheType)
	return value, true
}

// Put stores a value. Dev mode does not skip writes: entries stay warm for
// the moment dev mode is switched off. Backend errors are absorbed.
func (c *Cache) Put(key string, value []byte, ttl time.Duration) {
	if err := c.store.Put(key, value, ttl); err != nil {
		metrics.RecordCacheError("put")
	}
}

// Invalidate removes every key containing pattern as a substring.
//
// Callers must invalidate only AFTER their database write has committed;
// invalidating first would let a concurrent reader re-populate the cache
// from pre-write state and serve it until TTL expiry.
func (c *Cache) Invalidate(pattern, reason string) int {
	removed, err := c.store.DeleteByPattern(pattern)
	if err != nil {
		metrics.RecordCacheError("scan")
	}
	metrics.RecordCacheInvalidation(reason, removed)
	return removed
}

// Delete removes one key.
func (c *Cache) Delete(key string) {
	if err := c.store.Delete(key); err != nil {
		metrics.RecordCacheError("delete")
	}
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// bypass reports whether a read for this key should skip the cache. In dev
// mode every key is bypassed except those carrying a safe prefix, so
// developers see fresh data while stable lookups stay memoized.
func (c *Cache) bypass(key string) bool {
	if !c.devMode {
		return false
	}
	for _, prefix := range c.safePrefixes {
		if strings.HasPrefix(key, prefix) {
			return false
		}
	}
	return true
}

// ETagFor computes the entity tag for a serialized payload: the non-negative
// rolling hash of the bytes, quoted per RFC 9110. Identical payloads always
// carry identical tags, so clients can revalidate with If-None-Match.
func ETagFor(payload []byte) string {
	h := seed.HashBytes32(payload)
	if h < 0 {
		if h == -1<<31 {
			h = 0
		} else {
			h = -h
		}
	}
	return fmt.Sprintf("%q", fmt.Sprintf("%d", h))
}
