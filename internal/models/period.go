// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package models

import "fmt"

// PeriodKind identifies the granularity of a featured-selection bucket.
type PeriodKind string

const (
	// PeriodDaily buckets selections by calendar day (UTC).
	PeriodDaily PeriodKind = "daily"

	// PeriodWeekly buckets selections by the most recent anchor weekday
	// (Friday) on or before the instant.
	PeriodWeekly PeriodKind = "weekly"

	// PeriodMonthly buckets selections by the first day of the calendar month.
	PeriodMonthly PeriodKind = "monthly"
)

// PeriodKinds lists all valid period kinds in display order.
var PeriodKinds = []PeriodKind{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ParsePeriodKind converts a string into a PeriodKind.
// Returns an error for anything outside the enumeration.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch PeriodKind(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return PeriodKind(s), nil
	default:
		return "", fmt.Errorf("invalid period kind %q (must be daily, weekly, or monthly)", s)
	}
}

// Valid reports whether the kind is one of the enumeration values.
func (k PeriodKind) Valid() bool {
	switch k {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (k PeriodKind) String() string {
	return string(k)
}
