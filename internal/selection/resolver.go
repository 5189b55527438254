// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package selection implements deterministic featured-item resolution.
//
// A selection is resolved, never scheduled: the first request that falls
// into a fresh (period kind, bucket) pair computes the pick from a seed
// derived purely from the pair and races to insert it. The database's
// uniqueness constraint arbitrates the race; losers adopt the winning row.
// Repeated resolutions therefore always converge on one item per pair, with
// no coordination between service instances.
package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/seed"
)

// ErrItemNotFound is returned by Override when the target item does not
// exist in the catalog.
var ErrItemNotFound = errors.New("catalog item not found")

// maxResolveAttempts bounds the insert/adopt loop. More than one retry only
// happens when a winner row is deleted between the conflict and the re-read,
// which requires an admin cleanup racing the resolution.
const maxResolveAttempts = 3

// Store is the durable selection record port.
type Store interface {
	GetSelection(ctx context.Context, kind models.PeriodKind, bucket string) (*models.SelectionRecord, error)
	InsertSelectionIfAbsent(ctx context.Context, kind models.PeriodKind, bucket string, itemID int64) (bool, error)
	UpsertSelection(ctx context.Context, kind models.PeriodKind, bucket string, itemID int64) error
	DeleteSelectionsAfter(ctx context.Context, kind models.PeriodKind, bucket string) (int64, error)
}

// Catalog is the read-only item pool port.
type Catalog interface {
	CountItems(ctx context.Context) (int64, error)
	ItemIDAtOffset(ctx context.Context, offset int64) (int64, error)
	ItemExists(ctx context.Context, id int64) (bool, error)
}

// Enricher loads the display payload for a selected item.
type Enricher interface {
	EnrichItem(ctx context.Context, itemID int64, locale, defaultLocale string) (*models.FeaturedItem, error)
}

// Resolver coordinates seed derivation, the catalog pool, and the selection
// store.
type Resolver struct {
	store         Store
	catalog       Catalog
	enricher      Enricher
	defaultLocale string
}

// NewResolver wires a resolver. All three ports are typically satisfied by
// the same *database.DB.
func NewResolver(store Store, catalog Catalog, enricher Enricher, defaultLocale string) *Resolver {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &Resolver{
		store:         store,
		catalog:       catalog,
		enricher:      enricher,
		defaultLocale: defaultLocale,
	}
}

// Resolve returns the featured item for the period containing instant,
// creating the durable selection if this is the first resolution of the
// pair. An empty catalog resolves to (nil, nil): the period simply has no
// feature yet, which is not an error.
func (r *Resolver) Resolve(ctx context.Context, kind models.PeriodKind, instant time.Time, locale string) (*models.FeaturedItem, error) {
	start := time.Now()
	bucket := seed.Bucket(instant, kind)

	item, outcome, err := r.resolve(ctx, kind, bucket, locale)
	metrics.RecordSelectionResolution(string(kind), outcome, time.Since(start))
	return item, err
}

func (r *Resolver) resolve(ctx context.Context, kind models.PeriodKind, bucket, locale string) (*models.FeaturedItem, string, error) {
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		// Fast path: the pair already has a durable record.
		rec, err := r.store.GetSelection(ctx, kind, bucket)
		if err != nil {
			return nil, "error", err
		}
		if rec != nil {
			item, err := r.enrich(ctx, rec.ItemID, bucket, locale)
			return item, "existing", err
		}

		// First resolution of this pair: derive the pick.
		itemID, err := r.pick(ctx, seed.SeedForBucket(kind, bucket))
		if err != nil {
			return nil, "error", err
		}
		if itemID == 0 {
			return nil, "empty_pool", nil
		}

		inserted, err := r.store.InsertSelectionIfAbsent(ctx, kind, bucket, itemID)
		if err != nil {
			return nil, "error", err
		}
		if inserted {
			logging.Ctx(ctx).Info().
				Str("period_kind", string(kind)).
				Str("bucket", bucket).
				Int64("item_id", itemID).
				Msg("Created selection")
			item, err := r.enrich(ctx, itemID, bucket, locale)
			return item, "created", err
		}

		// Lost the race: adopt the winning row.
		rec, err = r.store.GetSelection(ctx, kind, bucket)
		if err != nil {
			return nil, "error", err
		}
		if rec != nil {
			item, err := r.enrich(ctx, rec.ItemID, bucket, locale)
			return item, "adopted", err
		}

		// The winner vanished between conflict and re-read (concurrent
		// cleanup). Loop and resolve from scratch.
	}

	return nil, "error", fmt.Errorf("selection for %s/%s kept vanishing during resolution", kind, bucket)
}

// Reselect forces a fresh pick for the period containing instant, replacing
// any existing selection. The seed is perturbed with the wall clock, so
// repeated reselects walk through different items.
func (r *Resolver) Reselect(ctx context.Context, kind models.PeriodKind, instant time.Time, locale string) (*models.FeaturedItem, error) {
	bucket := seed.Bucket(instant, kind)

	itemID, err := r.pick(ctx, seed.PerturbedSeed(kind, bucket, time.Now()))
	if err != nil {
		return nil, err
	}
	if itemID == 0 {
		return nil, nil
	}

	if err := r.store.UpsertSelection(ctx, kind, bucket, itemID); err != nil {
		return nil, err
	}
	metrics.SelectionReselects.WithLabelValues(string(kind)).Inc()
	logging.Ctx(ctx).Info().
		Str("period_kind", string(kind)).
		Str("bucket", bucket).
		Int64("item_id", itemID).
		Msg("Forced re-selection")

	return r.enrich(ctx, itemID, bucket, locale)
}

// Override force-sets the selection for an explicit bucket date, replacing
// any existing row. The bucket date is normalized to the bucket containing
// it, so overriding a mid-week date lands on that week's anchor.
func (r *Resolver) Override(ctx context.Context, kind models.PeriodKind, bucketDate string, itemID int64) (string, error) {
	parsed, err := seed.ParseBucketDate(bucketDate)
	if err != nil {
		return "", err
	}
	instant, _ := time.Parse("2006-01-02", parsed)
	bucket := seed.Bucket(instant, kind)

	exists, err := r.catalog.ItemExists(ctx, itemID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrItemNotFound
	}

	if err := r.store.UpsertSelection(ctx, kind, bucket, itemID); err != nil {
		return "", err
	}
	metrics.SelectionOverrides.WithLabelValues(string(kind)).Inc()
	logging.Ctx(ctx).Info().
		Str("period_kind", string(kind)).
		Str("bucket", bucket).
		Int64("item_id", itemID).
		Msg("Admin override applied")

	return bucket, nil
}

// Cleanup deletes every selection in buckets strictly after the one
// containing now, for all period kinds. Current selections are preserved.
// Subsequent resolutions of the deleted buckets re-derive deterministically.
func (r *Resolver) Cleanup(ctx context.Context, now time.Time) (*models.CleanupResult, error) {
	result := &models.CleanupResult{
		Deleted: make(map[models.PeriodKind]int64, len(models.PeriodKinds)),
	}

	for _, kind := range models.PeriodKinds {
		bucket := seed.Bucket(now, kind)
		deleted, err := r.store.DeleteSelectionsAfter(ctx, kind, bucket)
		if err != nil {
			return nil, fmt.Errorf("cleanup for %s: %w", kind, err)
		}
		result.Deleted[kind] = deleted
		result.Total += deleted
		if deleted > 0 {
			metrics.SelectionCleanupDeletions.WithLabelValues(string(kind)).Add(float64(deleted))
		}
	}

	logging.Ctx(ctx).Info().Int64("total", result.Total).Msg("Cleaned up future selections")
	return result, nil
}

// Preview simulates the selection for each kind's next bucket without
// writing anything. An already-existing row for a next bucket (an admin
// override) is reported as-is; otherwise the pick is derived from the seed
// the future resolution would use, so the preview matches what will happen
// unless the catalog changes in between.
func (r *Resolver) Preview(ctx context.Context, now time.Time, locale string) ([]models.PreviewedSelection, error) {
	previews := make([]models.PreviewedSelection, 0, len(models.PeriodKinds))

	for _, kind := range models.PeriodKinds {
		bucket := seed.NextBucket(now, kind)

		var itemID int64
		rec, err := r.store.GetSelection(ctx, kind, bucket)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			itemID = rec.ItemID
		} else {
			itemID, err = r.pick(ctx, seed.SeedForBucket(kind, bucket))
			if err != nil {
				return nil, err
			}
		}

		preview := models.PreviewedSelection{
			PeriodKind: kind,
			Bucket:     bucket,
		}
		if itemID != 0 {
			item, err := r.enrich(ctx, itemID, bucket, locale)
			if err != nil {
				return nil, err
			}
			preview.Item = item
		}
		previews = append(previews, preview)
	}

	return previews, nil
}

// pick maps a seed onto the catalog pool: offset = seed mod pool size,
// reading the item ID at that offset in ID order. Returns 0 on an empty
// pool.
func (r *Resolver) pick(ctx context.Context, seedValue int32) (int64, error) {
	count, err := r.catalog.CountItems(ctx)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	offset := int64(seedValue) % count
	return r.catalog.ItemIDAtOffset(ctx, offset)
}

// enrich loads the display payload and stamps the bucket onto it.
func (r *Resolver) enrich(ctx context.Context, itemID int64, bucket, locale string) (*models.FeaturedItem, error) {
	if locale == "" {
		locale = r.defaultLocale
	}
	item, err := r.enricher.EnrichItem(ctx, itemID, locale, r.defaultLocale)
	if err != nil {
		return nil, err
	}
	item.Bucket = bucket
	return item, nil
}
