// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package validation

import (
	"strings"
	"testing"

	"github.com/marqueehq/marquee/internal/models"
)

func TestValidateStructPasses(t *testing.T) {
	req := models.OverrideSelectionRequest{
		PeriodKind: "daily",
		BucketDate: "2024-01-15",
		ItemID:     42,
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestPeriodKindValidator(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"daily", false},
		{"weekly", false},
		{"monthly", false},
		{"yearly", true},
		{"Daily", true},
		{"", true},
	}

	for _, tt := range tests {
		req := models.ReselectRequest{PeriodKind: tt.kind}
		err := ValidateStruct(&req)
		if tt.wantErr && err == nil {
			t.Errorf("period kind %q accepted, want rejection", tt.kind)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("period kind %q rejected: %v", tt.kind, err)
		}
	}
}

func TestBucketDateValidator(t *testing.T) {
	tests := []struct {
		date    string
		wantErr bool
	}{
		{"2024-01-15", false},
		{"2024-12-01", false},
		{"2024-1-15", true},
		{"15-01-2024", true},
		{"2024-01-32", true},
		{"tomorrow", true},
	}

	for _, tt := range tests {
		req := models.OverrideSelectionRequest{
			PeriodKind: "weekly",
			BucketDate: tt.date,
			ItemID:     1,
		}
		err := ValidateStruct(&req)
		if tt.wantErr && err == nil {
			t.Errorf("bucket date %q accepted, want rejection", tt.date)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("bucket date %q rejected: %v", tt.date, err)
		}
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	req := models.ReselectRequest{PeriodKind: "fortnightly"}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_FAILED" {
		t.Errorf("code = %q, want VALIDATION_FAILED", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "daily, weekly, monthly") {
		t.Errorf("message %q does not name allowed kinds", apiErr.Message)
	}
	if apiErr.Details["field"] != "PeriodKind" {
		t.Errorf("details field = %v, want PeriodKind", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	req := models.OverrideSelectionRequest{
		PeriodKind: "never",
		BucketDate: "someday",
		ItemID:     0,
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) < 3 {
		t.Fatalf("got %d field errors, want 3", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("details fields has type %T", apiErr.Details["fields"])
	}
	if len(fields) != len(err.Errors()) {
		t.Errorf("details list %d entries, errors %d", len(fields), len(err.Errors()))
	}
}

func TestTranslateMinMessages(t *testing.T) {
	req := models.SearchRequest{Query: "", Page: 1, Limit: 10}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error for empty query")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error %q does not mention required", err.Error())
	}
}
