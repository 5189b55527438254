// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package seed

import (
	"testing"
	"time"

	"github.com/marqueehq/marquee/internal/models"
)

func TestHash32RollingPolynomial(t *testing.T) {
	// h = h*31 + codepoint, folded left to right.
	tests := []struct {
		in   string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 97*31 + 98},
		{"abc", (97*31+98)*31 + 99},
	}
	for _, tt := range tests {
		if got := Hash32(tt.in); got != tt.want {
			t.Errorf("Hash32(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHash32MatchesHashBytes32ForASCII(t *testing.T) {
	s := "daily-2024-01-15"
	if Hash32(s) != HashBytes32([]byte(s)) {
		t.Errorf("Hash32 and HashBytes32 disagree on ASCII input %q", s)
	}
}

func TestDailyBucketStableWithinDay(t *testing.T) {
	base := time.Date(2024, 1, 15, 0, 0, 1, 0, time.UTC)
	instants := []time.Time{
		base,
		base.Add(6 * time.Hour),
		base.Add(12 * time.Hour),
		time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC),
	}
	for _, instant := range instants {
		if got := Bucket(instant, models.PeriodDaily); got != "2024-01-15" {
			t.Errorf("Bucket(%v, daily) = %q, want 2024-01-15", instant, got)
		}
	}

	next := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	if got := Bucket(next, models.PeriodDaily); got != "2024-01-16" {
		t.Errorf("adjacent day bucket = %q, want 2024-01-16", got)
	}
}

func TestDailyBucketUTCNormalized(t *testing.T) {
	// 23:00 in UTC-5 is 04:00 UTC the next day.
	loc := time.FixedZone("UTC-5", -5*3600)
	instant := time.Date(2024, 1, 15, 23, 0, 0, 0, loc)
	if got := Bucket(instant, models.PeriodDaily); got != "2024-01-16" {
		t.Errorf("Bucket of non-UTC instant = %q, want 2024-01-16 (UTC date)", got)
	}
}

func TestWeeklyBucketAnchorsOnFriday(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-01-19", "2024-01-19"}, // a Friday maps to itself
		{"2024-01-20", "2024-01-19"}, // Saturday
		{"2024-01-21", "2024-01-19"}, // Sunday
		{"2024-01-25", "2024-01-19"}, // Thursday, last day of the week
		{"2024-01-26", "2024-01-26"}, // next Friday starts a new bucket
	}
	for _, tt := range tests {
		instant, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatalf("bad test date %q: %v", tt.date, err)
		}
		if got := Bucket(instant, models.PeriodWeekly); got != tt.want {
			t.Errorf("Bucket(%s, weekly) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestMonthlyBucketFirstOfMonth(t *testing.T) {
	instant := time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC)
	if got := Bucket(instant, models.PeriodMonthly); got != "2024-02-01" {
		t.Errorf("Bucket(leap Feb 29, monthly) = %q, want 2024-02-01", got)
	}

	instant = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	if got := Bucket(instant, models.PeriodMonthly); got != "2024-12-01" {
		t.Errorf("Bucket(Dec 31, monthly) = %q, want 2024-12-01", got)
	}
}

func TestNextBucket(t *testing.T) {
	instant := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC) // Saturday
	tests := []struct {
		kind models.PeriodKind
		want string
	}{
		{models.PeriodDaily, "2024-01-21"},
		{models.PeriodWeekly, "2024-01-26"},
		{models.PeriodMonthly, "2024-02-01"},
	}
	for _, tt := range tests {
		if got := NextBucket(instant, tt.kind); got != tt.want {
			t.Errorf("NextBucket(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestNextBucketMonthlyYearWrap(t *testing.T) {
	instant := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	if got := NextBucket(instant, models.PeriodMonthly); got != "2025-01-01" {
		t.Errorf("NextBucket(Dec, monthly) = %q, want 2025-01-01", got)
	}
}

func TestSeedIsPure(t *testing.T) {
	instant := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	first := Seed(instant, models.PeriodDaily)
	for i := 0; i < 10; i++ {
		if got := Seed(instant, models.PeriodDaily); got != first {
			t.Fatalf("Seed not deterministic: run %d got %d, first %d", i, got, first)
		}
	}
	if first < 0 {
		t.Errorf("Seed = %d, want non-negative", first)
	}
}

func TestSeedMatchesSpecifiedHash(t *testing.T) {
	// The seed for daily/2024-01-15 is the rolling hash of "daily-2024-01-15".
	instant := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	want := Hash32("daily-2024-01-15")
	if want < 0 {
		want = -want
	}
	if got := Seed(instant, models.PeriodDaily); got != want {
		t.Errorf("Seed = %d, want abs(Hash32) = %d", got, want)
	}
}

func TestSeedDiffersAcrossKinds(t *testing.T) {
	instant := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	daily := Seed(instant, models.PeriodDaily)
	monthly := Seed(instant, models.PeriodMonthly)
	// Same bucket date string but different kind prefix: seeds must differ.
	if daily == monthly {
		t.Errorf("daily and monthly seeds identical (%d) for same bucket date", daily)
	}
}

func TestPerturbedSeedVariesWithClock(t *testing.T) {
	bucket := "2024-01-15"
	a := PerturbedSeed(models.PeriodDaily, bucket, time.Unix(0, 1))
	b := PerturbedSeed(models.PeriodDaily, bucket, time.Unix(0, 2))
	if a == b {
		t.Errorf("perturbed seeds identical for different clock readings")
	}
	if a < 0 || b < 0 {
		t.Errorf("perturbed seeds must be non-negative, got %d, %d", a, b)
	}
}

func TestParseBucketDate(t *testing.T) {
	if _, err := ParseBucketDate("2024-01-15"); err != nil {
		t.Errorf("valid bucket date rejected: %v", err)
	}
	for _, bad := range []string{"2024-1-15", "15-01-2024", "2024-01-32", "yesterday", ""} {
		if _, err := ParseBucketDate(bad); err == nil {
			t.Errorf("ParseBucketDate(%q) accepted malformed input", bad)
		}
	}
}
