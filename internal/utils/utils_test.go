package utils

import (
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp("20240315093005"); got != "2024-03-15 09:30:05" {
		t.Fatalf("unexpected timestamp format: %s", got)
	}
	if got := FormatTimestamp("not-a-stamp"); got != "not-a-stamp" {
		t.Fatalf("invalid timestamps should pass through, got %s", got)
	}
	ts, err := ParseRunTimestamp(" 20240101000000 ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ts.Year() != 2024 || ts.Month() != time.January {
		t.Fatalf("parsed wrong date: %v", ts)
	}
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		format string
		v      any
		want   string
	}{
		{"percent", 0.9123, "91.23%"},
		{"percent", "0.5", "50.00%"},
		{"percent", "n/a", "n/a"},
		{"timestamp", "20231231235959", "2023-12-31 23:59:59"},
		{"", nil, ""},
		{"", 3.0, "3"},
		{"", true, "true"},
		{"", map[string]any{"stat": "ok"}, `{"stat":"ok"}`},
	}
	for _, tc := range cases {
		if got := FormatCell(tc.format, tc.v); got != tc.want {
			t.Fatalf("FormatCell(%q, %v) = %q, want %q", tc.format, tc.v, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("privacy policy", 10); got != "privacy..." {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("short strings should be kept, got %q", got)
	}
	if got := FirstNonEmpty("", "  ", "path"); got != "path" {
		t.Fatalf("unexpected first non-empty: %q", got)
	}
}
