// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		Init(Config{Level: tt.level})
		if got := GetLevel(); got != tt.want {
			t.Errorf("Init(level=%q): got %v, want %v", tt.level, got, tt.want)
		}
	}

	// Restore defaults for other tests
	Init(DefaultConfig())
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("bucket", "2024-01-15").Msg("selection created")

	out := buf.String()
	if !strings.Contains(out, `"bucket":"2024-01-15"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"selection created"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("should be dropped")
	Info().Msg("should be dropped too")
	Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("sub-level messages leaked through: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing from output: %q", out)
	}
}

func TestCtxCarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithCorrelationID(ctx, "corr-456")

	Ctx(ctx).Info().Msg("with ids")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Errorf("request_id missing: %q", out)
	}
	if !strings.Contains(out, `"correlation_id":"corr-456"`) {
		t.Errorf("correlation_id missing: %q", out)
	}
}

func TestCtxWithoutIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Ctx(context.Background()).Info().Msg("bare")

	out := buf.String()
	if strings.Contains(out, "request_id") || strings.Contains(out, "correlation_id") {
		t.Errorf("unexpected id fields on bare context: %q", out)
	}
}

func TestGenerateCorrelationIDLength(t *testing.T) {
	id := GenerateCorrelationID()
	if len(id) != 8 {
		t.Errorf("correlation id length = %d, want 8", len(id))
	}
}

func TestSlogAdapterForwards(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	sl := Slog()
	sl.Info("supervisor event", "service", "http-server")

	out := buf.String()
	if !strings.Contains(out, `"service":"http-server"`) {
		t.Errorf("slog attr missing: %q", out)
	}
	if !strings.Contains(out, "supervisor event") {
		t.Errorf("slog message missing: %q", out)
	}
}
