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

// AuditPurger matches the audit recorder's retention entry point.
// Satisfied by *audit.Recorder.
type AuditPurger interface {
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// AuditRetentionService periodically removes audit events older than the
// configured retention window.
type AuditRetentionService struct {
	purger    AuditPurger
	interval  time.Duration
	retention time.Duration
	name      string
}

// NewAuditRetentionService creates a retention service. The interval
// defaults to 24h, the retention window to 90 days.
func NewAuditRetentionService(purger AuditPurger, interval, retention time.Duration) *AuditRetentionService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &AuditRetentionService{
		purger:    purger,
		interval:  interval,
		retention: retention,
		name:      "audit-retention",
	}
}

// Serve implements suture.Service. Purge failures are logged and retried on
// the next tick.
func (s *AuditRetentionService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-s.retention)
			removed, err := s.purger.Purge(ctx, cutoff)
			if err != nil {
				logging.Warn().Err(err).Msg("Audit retention pass failed")
				continue
			}
			if removed > 0 {
				logging.Info().Int64("removed", removed).Msg("Purged expired audit events")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *AuditRetentionService) String() string {
	return s.name
}
