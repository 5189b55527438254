// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

/*
schema.go - Database Schema Management

Tables:
  - items: The read-only catalog pool selections are drawn from
  - translations: Localized title/tagline/overview per (item_id, locale)
  - posters: Image references per item, one marked primary per kind
  - selections: Durable (period_kind, bucket) -> item_id record

The UNIQUE constraint on selections(period_kind, bucket) is load-bearing:
concurrent resolvers race to insert and exactly one row wins, so repeated
resolutions of the same period always converge on one item.

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements. This provides
a single source of truth for the complete schema and fast startup.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS items_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS items (
			id BIGINT PRIMARY KEY DEFAULT nextval('items_id_seq'),
			slug TEXT NOT NULL UNIQUE,
			year INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS translations (
			item_id BIGINT NOT NULL,
			locale TEXT NOT NULL,
			title TEXT NOT NULL,
			tagline TEXT,
			overview TEXT,
			PRIMARY KEY (item_id, locale)
		)`,

		`CREATE TABLE IF NOT EXISTS posters (
			item_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			url TEXT NOT NULL,
			is_primary BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// bucket is the canonical YYYY-MM-DD bucket date string. The UNIQUE
		// pair constraint is what makes concurrent creation converge.
		`CREATE TABLE IF NOT EXISTS selections (
			period_kind TEXT NOT NULL,
			bucket TEXT NOT NULL,
			item_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
			UNIQUE (period_kind, bucket)
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// createIndexes creates indexes for frequently filtered columns
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_translations_locale ON translations (locale)`,
		`CREATE INDEX IF NOT EXISTS idx_posters_item ON posters (item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_selections_kind_bucket ON selections (period_kind, bucket)`,
		`CREATE INDEX IF NOT EXISTS idx_items_year ON items (year)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}
