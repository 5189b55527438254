// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package audit records admin mutations in a durable trail.
//
// Every privileged operation that rewrites selection state or enrichment
// data (override, reselect, cleanup, translation edits) emits one event.
// Writes are asynchronous: recording never blocks the request path, and a
// full buffer drops the event with a warning rather than stalling.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marqueehq/marquee/internal/logging"
)

// Outcome is the result of an audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audited admin operation.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Action names the operation: override, reselect, cleanup, translation.
	Action  string  `json:"action"`
	Outcome Outcome `json:"outcome"`

	// Request correlation.
	RequestID string `json:"request_id,omitempty"`
	RemoteIP  string `json:"remote_ip,omitempty"`

	// Target of the mutation; zero values mean not applicable.
	PeriodKind string `json:"period_kind,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	ItemID     int64  `json:"item_id,omitempty"`

	// Detail is a short free-form description of what changed.
	Detail string `json:"detail,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	List(ctx context.Context, limit int) ([]Event, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// Recorder buffers events and writes them to the store in the background.
type Recorder struct {
	store Store
	ch    chan *Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(store Store, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		store: store,
		ch:    make(chan *Event, bufferSize),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

func (r *Recorder) writer() {
	defer r.wg.Done()
	for event := range r.ch {
		// Write with a bounded context so one stuck write cannot wedge
		// the whole trail.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Save(ctx, event); err != nil {
			logging.Error().Err(err).Str("action", event.Action).Msg("Failed to persist audit event")
		}
		cancel()
	}
}

// Record stamps and enqueues an event. The ID and timestamp are filled here;
// the request ID is taken from the context when not already set.
func (r *Recorder) Record(ctx context.Context, event Event) {
	event.ID = uuid.New().String()
	event.Timestamp = time.Now().UTC()
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	if event.Outcome == "" {
		event.Outcome = OutcomeSuccess
	}

	select {
	case r.ch <- &event:
	default:
		logging.Warn().Str("action", event.Action).Msg("Audit buffer full, dropping event")
	}
}

// List returns the most recent events, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return r.store.List(ctx, limit)
}

// Purge removes events older than the given cutoff and returns the count.
func (r *Recorder) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	return r.store.Purge(ctx, olderThan)
}

// Close drains the buffer and stops the background writer.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.ch)
	})
	r.wg.Wait()
	return nil
}
