package utils

import (
	"strings"
	"time"
)

const (
	// LayoutRunTimestamp is how runs stamp their records: yyyyMMddHHmmss.
	LayoutRunTimestamp = "20060102150405"
	layoutDateTime     = "2006-01-02 15:04:05"
)

// ParseRunTimestamp parses a yyyyMMddHHmmss value in local timezone.
func ParseRunTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(LayoutRunTimestamp, strings.TrimSpace(s), time.Local)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}

// FormatTimestamp renders a run timestamp for display. Values that are not
// yyyyMMddHHmmss are returned unchanged.
func FormatTimestamp(s string) string {
	t, err := ParseRunTimestamp(s)
	if err != nil {
		return s
	}
	return FormatDateTime(t)
}
