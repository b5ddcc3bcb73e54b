// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"testing"
)

func TestNullInt64FromID(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected sql.NullInt64
	}{
		{"positive", 42, sql.NullInt64{Int64: 42, Valid: true}},
		{"zero", 0, sql.NullInt64{Int64: 0, Valid: false}},
		{"negative", -5, sql.NullInt64{Int64: -5, Valid: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NullInt64FromID(tt.input); got != tt.expected {
				t.Errorf("NullInt64FromID(%d) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNullStringFromValue(t *testing.T) {
	if got := NullStringFromValue(""); got.Valid {
		t.Errorf("NullStringFromValue(\"\") should be invalid, got %+v", got)
	}
	if got := NullStringFromValue("hero"); !got.Valid || got.String != "hero" {
		t.Errorf("NullStringFromValue(\"hero\") = %+v", got)
	}
}

func TestParsePositiveInt64(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{"1", 1, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePositiveInt64(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParsePositiveInt64(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		name string
		v    int
		def  int
		lo   int
		hi   int
		want int
	}{
		{"zero uses default", 0, 20, 1, 100, 20},
		{"within range", 50, 20, 1, 100, 50},
		{"above max", 500, 20, 1, 100, 100},
		{"below min", -4, 20, 1, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampInt(tt.v, tt.def, tt.lo, tt.hi); got != tt.want {
				t.Errorf("ClampInt(%d) = %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}
