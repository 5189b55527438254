// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marqueehq/marquee/internal/logging"
)

// DuckDBStore persists audit events in the service's DuckDB database.
type DuckDBStore struct {
	conn *sql.DB
}

// NewDuckDBStore creates a store backed by the given connection.
func NewDuckDBStore(conn *sql.DB) *DuckDBStore {
	return &DuckDBStore{conn: conn}
}

// CreateTable creates the audit table if it does not exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS admin_audit (
			id VARCHAR PRIMARY KEY,
			ts TIMESTAMP NOT NULL,
			action VARCHAR NOT NULL,
			outcome VARCHAR NOT NULL,
			request_id VARCHAR,
			remote_ip VARCHAR,
			period_kind VARCHAR,
			bucket VARCHAR,
			item_id BIGINT,
			detail VARCHAR
		)`
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create admin_audit table: %w", err)
	}
	return nil
}

// Save inserts one event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO admin_audit
			(id, ts, action, outcome, request_id, remote_ip, period_kind, bucket, item_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.conn.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.Action, string(event.Outcome),
		event.RequestID, event.RemoteIP,
		event.PeriodKind, event.Bucket, event.ItemID, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// List returns the most recent events, newest first.
func (s *DuckDBStore) List(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT id, ts, action, outcome, request_id, remote_ip,
		       period_kind, bucket, item_id, detail
		FROM admin_audit
		ORDER BY ts DESC
		LIMIT ?`

	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close audit rows")
		}
	}()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var outcome string
		err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &outcome,
			&e.RequestID, &e.RemoteIP, &e.PeriodKind, &e.Bucket, &e.ItemID, &e.Detail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Outcome = Outcome(outcome)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Purge deletes events older than the cutoff and returns the count removed.
func (s *DuckDBStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM admin_audit WHERE ts < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	return result.RowsAffected()
}
