// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordDBQuery tests database query metric recording
func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful SELECT query",
			operation: "SELECT",
			table:     "selections",
			duration:  10 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "successful INSERT query",
			operation: "INSERT",
			table:     "selections",
			duration:  5 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "failed query with short error",
			operation: "SELECT",
			table:     "items",
			duration:  100 * time.Millisecond,
			err:       errors.New("connection refused"),
		},
		{
			name:      "failed query with long error - should truncate to 50 chars",
			operation: "DELETE",
			table:     "selections",
			duration:  50 * time.Millisecond,
			err:       errors.New("this is a very long error message that exceeds fifty characters and should be truncated properly"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the query - should not panic
			RecordDBQuery(tt.operation, tt.table, tt.duration, tt.err)
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/", "200"))
	RecordAPIRequest("GET", "/", "200", 25*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/", "200"))
	if after != before+1 {
		t.Errorf("APIRequestsTotal = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active after dec = %v, want %v", got, before)
	}
}

func TestRecordSelectionResolutionOutcomes(t *testing.T) {
	for _, outcome := range []string{"existing", "created", "adopted", "empty_pool"} {
		before := testutil.ToFloat64(SelectionResolutions.WithLabelValues("daily", outcome))
		RecordSelectionResolution("daily", outcome, 3*time.Millisecond)
		after := testutil.ToFloat64(SelectionResolutions.WithLabelValues("daily", outcome))
		if after != before+1 {
			t.Errorf("outcome %q count = %v, want %v", outcome, after, before+1)
		}
	}
}

func TestCacheCounters(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHits.WithLabelValues("feed"))
	missesBefore := testutil.ToFloat64(CacheMisses.WithLabelValues("feed"))

	RecordCacheHit("feed")
	RecordCacheMiss("feed")

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("feed")); got != hitsBefore+1 {
		t.Errorf("cache hits = %v, want %v", got, hitsBefore+1)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("feed")); got != missesBefore+1 {
		t.Errorf("cache misses = %v, want %v", got, missesBefore+1)
	}
}

func TestRecordCacheInvalidation(t *testing.T) {
	sweepsBefore := testutil.ToFloat64(CacheInvalidations.WithLabelValues("override"))
	evictionsBefore := testutil.ToFloat64(CacheEvictions.WithLabelValues("pattern"))

	RecordCacheInvalidation("override", 3)

	if got := testutil.ToFloat64(CacheInvalidations.WithLabelValues("override")); got != sweepsBefore+1 {
		t.Errorf("invalidation sweeps = %v, want %v", got, sweepsBefore+1)
	}
	if got := testutil.ToFloat64(CacheEvictions.WithLabelValues("pattern")); got != evictionsBefore+3 {
		t.Errorf("pattern evictions = %v, want %v", got, evictionsBefore+3)
	}

	// A sweep that removed nothing still counts as a sweep.
	RecordCacheInvalidation("override", 0)
	if got := testutil.ToFloat64(CacheEvictions.WithLabelValues("pattern")); got != evictionsBefore+3 {
		t.Errorf("zero-removal sweep changed evictions: %v", got)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordCacheHit("item")
				RecordAPIRequest("GET", "/items/{id}", "200", time.Millisecond)
				RecordDBQuery("SELECT", "items", time.Millisecond, nil)
			}
		}()
	}
	wg.Wait()
}
