// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
)

// ErrItemNotFound is returned when a catalog item does not exist.
var ErrItemNotFound = errors.New("catalog item not found")

// InsertItem adds a catalog item and returns its generated ID.
func (db *DB) InsertItem(ctx context.Context, slug string, year int) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var id int64
	var yearVal interface{}
	if year > 0 {
		yearVal = year
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO items (slug, year) VALUES (?, ?) RETURNING id`,
		slug, yearVal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item %q: %w", slug, err)
	}
	return id, nil
}

// UpsertTranslation inserts or replaces localized text for an item.
func (db *DB) UpsertTranslation(ctx context.Context, tr models.Translation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	exists, err := db.ItemExists(ctx, tr.ItemID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrItemNotFound
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO translations (item_id, locale, title, tagline, overview)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (item_id, locale) DO UPDATE SET
			title = excluded.title,
			tagline = excluded.tagline,
			overview = excluded.overview`,
		tr.ItemID, tr.Locale, tr.Title, nullIfEmpty(tr.Tagline), nullIfEmpty(tr.Overview),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert translation for item %d locale %s: %w", tr.ItemID, tr.Locale, err)
	}
	return nil
}

// InsertPoster adds an image reference for an item.
func (db *DB) InsertPoster(ctx context.Context, p models.Poster) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posters (item_id, kind, url, is_primary) VALUES (?, ?, ?, ?)`,
		p.ItemID, p.Kind, p.URL, p.Primary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poster for item %d: %w", p.ItemID, err)
	}
	return nil
}

// CountItems returns the size of the catalog pool.
func (db *DB) CountItems(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

// ItemIDAtOffset returns the ID of the item at the given position in the pool
// ordered by ID ascending. The ordering makes the seed -> item mapping stable
// for a fixed pool, which is what keeps deterministic selection deterministic.
func (db *DB) ItemIDAtOffset(ctx context.Context, offset int64) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var id int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM items ORDER BY id LIMIT 1 OFFSET ?`, offset,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read item at offset %d: %w", offset, err)
	}
	return id, nil
}

// ItemExists reports whether a catalog item with the given ID exists.
func (db *DB) ItemExists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check item %d: %w", id, err)
	}
	return true, nil
}

// EnrichItem loads the display payload for a selected item: localized text in
// the requested locale with default-locale fallback, plus the primary poster.
func (db *DB) EnrichItem(ctx context.Context, itemID int64, locale, defaultLocale string) (*models.FeaturedItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		slug     string
		year     sql.NullInt32
		title    sql.NullString
		tagline  sql.NullString
		overview sql.NullString
		hitLoc   sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT i.slug, i.year, t.title, t.tagline, t.overview, t.locale
		 FROM items i
		 LEFT JOIN translations t
			ON t.item_id = i.id AND t.locale IN (?, ?)
		 WHERE i.id = ?
		 ORDER BY CASE WHEN t.locale = ? THEN 0 ELSE 1 END
		 LIMIT 1`,
		locale, defaultLocale, itemID, locale,
	).Scan(&slug, &year, &title, &tagline, &overview, &hitLoc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enrich item %d: %w", itemID, err)
	}

	item := &models.FeaturedItem{
		ID:       itemID,
		Title:    title.String,
		Tagline:  tagline.String,
		Overview: overview.String,
		Year:     int(year.Int32),
		Locale:   hitLoc.String,
	}
	// An item with no translation in either locale still renders: the slug
	// stands in for the title so the feed never carries an empty card.
	if item.Title == "" {
		item.Title = slug
		item.Locale = defaultLocale
	}

	posterURL, err := db.primaryPosterURL(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.PosterURL = posterURL

	return item, nil
}

// primaryPosterURL returns the preferred poster URL for an item, or empty
// string when the item has no posters.
func (db *DB) primaryPosterURL(ctx context.Context, itemID int64) (string, error) {
	var url string
	err := db.conn.QueryRowContext(ctx,
		`SELECT url FROM posters
		 WHERE item_id = ?
		 ORDER BY CASE WHEN is_primary THEN 0 ELSE 1 END, kind
		 LIMIT 1`, itemID,
	).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read poster for item %d: %w", itemID, err)
	}
	return url, nil
}

// GetItemDetail loads one item with its localized text. DetailFull
// additionally loads all posters and all translations.
func (db *DB) GetItemDetail(ctx context.Context, itemID int64, locale, defaultLocale string, level models.DetailLevel) (*models.ItemDetail, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		item     models.CatalogItem
		year     sql.NullInt32
		title    sql.NullString
		tagline  sql.NullString
		overview sql.NullString
		hitLoc   sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT i.id, i.slug, i.year, i.created_at, t.title, t.tagline, t.overview, t.locale
		 FROM items i
		 LEFT JOIN translations t
			ON t.item_id = i.id AND t.locale IN (?, ?)
		 WHERE i.id = ?
		 ORDER BY CASE WHEN t.locale = ? THEN 0 ELSE 1 END
		 LIMIT 1`,
		locale, defaultLocale, itemID, locale,
	).Scan(&item.ID, &item.Slug, &year, &item.CreatedAt, &title, &tagline, &overview, &hitLoc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}
	item.Year = int(year.Int32)

	detail := &models.ItemDetail{
		Item:        item,
		Title:       title.String,
		Tagline:     tagline.String,
		Overview:    overview.String,
		Locale:      hitLoc.String,
		DetailLevel: level,
	}
	if detail.Title == "" {
		detail.Title = item.Slug
		detail.Locale = defaultLocale
	}

	if level != models.DetailFull {
		return detail, nil
	}

	posters, err := db.listPosters(ctx, itemID)
	if err != nil {
		return nil, err
	}
	detail.Posters = posters

	translations, err := db.listTranslations(ctx, itemID)
	if err != nil {
		return nil, err
	}
	detail.Translations = translations

	return detail, nil
}

func (db *DB) listPosters(ctx context.Context, itemID int64) ([]models.Poster, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id, kind, url, is_primary FROM posters
		 WHERE item_id = ?
		 ORDER BY CASE WHEN is_primary THEN 0 ELSE 1 END, kind`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posters for item %d: %w", itemID, err)
	}
	defer closeRows(rows)

	var posters []models.Poster
	for rows.Next() {
		var p models.Poster
		if err := rows.Scan(&p.ItemID, &p.Kind, &p.URL, &p.Primary); err != nil {
			return nil, fmt.Errorf("failed to scan poster row: %w", err)
		}
		posters = append(posters, p)
	}
	return posters, rows.Err()
}

func (db *DB) listTranslations(ctx context.Context, itemID int64) ([]models.Translation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id, locale, title, tagline, overview FROM translations
		 WHERE item_id = ? ORDER BY locale`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations for item %d: %w", itemID, err)
	}
	defer closeRows(rows)

	var translations []models.Translation
	for rows.Next() {
		var (
			tr       models.Translation
			tagline  sql.NullString
			overview sql.NullString
		)
		if err := rows.Scan(&tr.ItemID, &tr.Locale, &tr.Title, &tagline, &overview); err != nil {
			return nil, fmt.Errorf("failed to scan translation row: %w", err)
		}
		tr.Tagline = tagline.String
		tr.Overview = overview.String
		translations = append(translations, tr)
	}
	return translations, rows.Err()
}

// SearchItems searches catalog items by title substring with optional year
// filter and pagination. Titles are matched case-insensitively against the
// requested locale with default-locale fallback.
func (db *DB) SearchItems(ctx context.Context, req models.SearchRequest, locale, defaultLocale string) (*models.SearchResult, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	result, err := db.searchItems(ctx, req, locale, defaultLocale)
	metrics.RecordDBQuery("SELECT", "items", time.Since(start), err)
	return result, err
}

func (db *DB) searchItems(ctx context.Context, req models.SearchRequest, locale, defaultLocale string) (*models.SearchResult, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(req.Query)) + "%"

	where := `WHERE lower(t.title) LIKE ?`
	if req.Year > 0 {
		where += ` AND i.year = ?`
	}

	// Pick the best translation per item before matching so one item never
	// appears twice for a query hitting both locales.
	base := `
	FROM items i
	JOIN (
		SELECT item_id, title,
			row_number() OVER (
				PARTITION BY item_id
				ORDER BY CASE WHEN locale = ? THEN 0 ELSE 1 END
			) AS rn
		FROM translations
		WHERE locale IN (?, ?)
	) t ON t.item_id = i.id AND t.rn = 1
	` + where

	// Placeholder order follows the query text: subquery first, then filters.
	orderedArgs := []interface{}{locale, locale, defaultLocale, pattern}
	if req.Year > 0 {
		orderedArgs = append(orderedArgs, req.Year)
	}

	var total int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) `+base, orderedArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT i.id, i.slug, t.title, i.year ` + base + ` ORDER BY t.title, i.id LIMIT ? OFFSET ?`
	queryArgs := append(append([]interface{}{}, orderedArgs...), limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	defer closeRows(rows)

	hits := make([]models.SearchHit, 0, limit)
	for rows.Next() {
		var (
			hit  models.SearchHit
			year sql.NullInt32
		)
		if err := rows.Scan(&hit.ID, &hit.Slug, &hit.Title, &year); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		hit.Year = int(year.Int32)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.SearchResult{
		Items: hits,
		Query: req.Query,
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

// nullIfEmpty maps empty strings to SQL NULL for nullable text columns.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
