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
	"time"

	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
)

// GetSelection reads the durable selection for a (kind, bucket) pair.
// Returns (nil, nil) when no selection exists yet; absence is an ordinary
// state during resolution, not an error.
func (db *DB) GetSelection(ctx context.Context, kind models.PeriodKind, bucket string) (*models.SelectionRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rec, err := db.getSelection(ctx, kind, bucket)
	metrics.RecordDBQuery("SELECT", "selections", time.Since(start), err)
	return rec, err
}

func (db *DB) getSelection(ctx context.Context, kind models.PeriodKind, bucket string) (*models.SelectionRecord, error) {
	rec := &models.SelectionRecord{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT period_kind, bucket, item_id, created_at
		 FROM selections WHERE period_kind = ? AND bucket = ?`,
		string(kind), bucket,
	).Scan(&rec.PeriodKind, &rec.Bucket, &rec.ItemID, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection %s/%s: %w", kind, bucket, err)
	}
	return rec, nil
}

// InsertSelectionIfAbsent attempts the durable insert for a (kind, bucket)
// pair. It reports whether this call created the row: false means another
// writer already holds the pair and the caller should adopt the winning row.
// A uniqueness conflict is never surfaced as an error.
func (db *DB) InsertSelectionIfAbsent(ctx context.Context, kind models.PeriodKind, bucket string, itemID int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	inserted, err := db.insertSelectionIfAbsent(ctx, kind, bucket, itemID)
	metrics.RecordDBQuery("INSERT", "selections", time.Since(start), err)
	return inserted, err
}

func (db *DB) insertSelectionIfAbsent(ctx context.Context, kind models.PeriodKind, bucket string, itemID int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO selections (period_kind, bucket, item_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT (period_kind, bucket) DO NOTHING`,
		string(kind), bucket, itemID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert selection %s/%s: %w", kind, bucket, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result for %s/%s: %w", kind, bucket, err)
	}
	return affected == 1, nil
}

// UpsertSelection force-sets the selection for a (kind, bucket) pair,
// replacing any existing row. Used by the admin override operation.
func (db *DB) UpsertSelection(ctx context.Context, kind models.PeriodKind, bucket string, itemID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO selections (period_kind, bucket, item_id, created_at)
		 VALUES (?, ?, ?, current_timestamp)
		 ON CONFLICT (period_kind, bucket) DO UPDATE SET
			item_id = excluded.item_id,
			created_at = excluded.created_at`,
		string(kind), bucket, itemID,
	)
	metrics.RecordDBQuery("UPSERT", "selections", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert selection %s/%s: %w", kind, bucket, err)
	}
	return nil
}

// DeleteSelection removes the selection for a (kind, bucket) pair, reporting
// whether a row was deleted.
func (db *DB) DeleteSelection(ctx context.Context, kind models.PeriodKind, bucket string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM selections WHERE period_kind = ? AND bucket = ?`,
		string(kind), bucket,
	)
	metrics.RecordDBQuery("DELETE", "selections", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to delete selection %s/%s: %w", kind, bucket, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result for %s/%s: %w", kind, bucket, err)
	}
	return affected > 0, nil
}

// DeleteSelectionsAfter removes every selection of the given kind whose
// bucket starts strictly after the given bucket, returning the count of
// deleted rows. The current bucket itself is preserved.
//
// Bucket strings are zero-padded YYYY-MM-DD, so lexicographic comparison is
// chronological comparison.
func (db *DB) DeleteSelectionsAfter(ctx context.Context, kind models.PeriodKind, bucket string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM selections WHERE period_kind = ? AND bucket > ?`,
		string(kind), bucket,
	)
	metrics.RecordDBQuery("DELETE", "selections", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete future selections for %s after %s: %w", kind, bucket, err)
	}

	return res.RowsAffected()
}

// ListSelections returns all selections of one kind ordered by bucket.
// Used by tests and the admin preview surface.
func (db *DB) ListSelections(ctx context.Context, kind models.PeriodKind) ([]models.SelectionRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT period_kind, bucket, item_id, created_at
		 FROM selections WHERE period_kind = ? ORDER BY bucket`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list selections for %s: %w", kind, err)
	}
	defer closeRows(rows)

	var records []models.SelectionRecord
	for rows.Next() {
		var rec models.SelectionRecord
		if err := rows.Scan(&rec.PeriodKind, &rec.Bucket, &rec.ItemID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan selection row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
