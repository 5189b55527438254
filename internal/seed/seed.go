// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package seed derives period buckets and deterministic selection seeds.
//
// Everything here is a pure function of its inputs: no I/O, no clock reads,
// no side effects. Two instants that fall in the same bucket always produce
// the same bucket string, and the same bucket string always produces the
// same seed, which is what makes repeated resolutions of one period agree
// across service instances.
//
// All bucket arithmetic is UTC-normalized. The instant is converted to UTC
// before its calendar date is extracted, so multi-instance deployments in
// different timezones agree on the bucket.
package seed

import (
	"fmt"
	"time"

	"github.com/marqueehq/marquee/internal/models"
)

// anchorWeekday is the fixed weekday that starts a weekly bucket.
// The weekly bucket for an instant is the date of the most recent Friday
// on or before that instant's UTC date.
const anchorWeekday = time.Friday

// bucketDateFormat is the canonical bucket date layout.
const bucketDateFormat = "2006-01-02"

// Hash32 computes the polynomial rolling hash used for both selection seeds
// and cache ETags: each rune's code point is folded in as h = h*31 + cp,
// with ordinary int32 wraparound providing the 32-bit truncation.
func Hash32(s string) int32 {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	return h
}

// HashBytes32 is Hash32 over raw bytes. Used for ETag computation where the
// input is a serialized JSON payload rather than a bucket string.
func HashBytes32(b []byte) int32 {
	var h int32
	for _, c := range b {
		h = h*31 + int32(c)
	}
	return h
}

// abs32 returns the absolute value of v. math.MinInt32 maps to 0 rather
// than overflowing.
func abs32(v int32) int32 {
	if v == -1<<31 {
		return 0
	}
	if v < 0 {
		return -v
	}
	return v
}

// Bucket returns the canonical bucket date string for an instant and period
// kind: the UTC calendar date for daily, the most recent anchor Friday on or
// before it for weekly, and the first of the month for monthly.
func Bucket(instant time.Time, kind models.PeriodKind) string {
	return bucketDate(instant, kind).Format(bucketDateFormat)
}

// bucketDate returns the bucket start as a midnight-UTC time.
func bucketDate(instant time.Time, kind models.PeriodKind) time.Time {
	t := instant.UTC()
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch kind {
	case models.PeriodWeekly:
		back := (int(day.Weekday()) - int(anchorWeekday) + 7) % 7
		return day.AddDate(0, 0, -back)
	case models.PeriodMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// NextBucket returns the bucket string for the period instance immediately
// after the one containing instant. Used by the read-only preview operation.
func NextBucket(instant time.Time, kind models.PeriodKind) string {
	start := bucketDate(instant, kind)
	switch kind {
	case models.PeriodWeekly:
		start = start.AddDate(0, 0, 7)
	case models.PeriodMonthly:
		start = start.AddDate(0, 1, 0)
	default:
		start = start.AddDate(0, 0, 1)
	}
	return start.Format(bucketDateFormat)
}

// Seed derives the deterministic selection seed for an instant and kind:
// the absolute value of the rolling hash of "{kind}-{bucket}".
func Seed(instant time.Time, kind models.PeriodKind) int32 {
	return SeedForBucket(kind, Bucket(instant, kind))
}

// SeedForBucket derives the seed for an explicit bucket string.
func SeedForBucket(kind models.PeriodKind, bucket string) int32 {
	return abs32(Hash32(fmt.Sprintf("%s-%s", kind, bucket)))
}

// PerturbedSeed derives a time-perturbed seed for forced re-selection.
// Folding the wall-clock nanoseconds into the hashed string makes the
// resulting pick differ run to run even for the same bucket.
func PerturbedSeed(kind models.PeriodKind, bucket string, now time.Time) int32 {
	return abs32(Hash32(fmt.Sprintf("%s-%s-%d", kind, bucket, now.UnixNano())))
}

// ParseBucketDate validates and normalizes a caller-supplied bucket date.
func ParseBucketDate(s string) (string, error) {
	t, err := time.ParseInLocation(bucketDateFormat, s, time.UTC)
	if err != nil {
		return "", fmt.Errorf("invalid bucket date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t.Format(bucketDateFormat), nil
}
