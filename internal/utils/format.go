package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FormatPercent renders a 0..1 ratio as a percentage with two decimals.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

// ToFloat accepts JSON numbers and numeric strings.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// FormatCell renders a row value for a column with the given format
// ("", "timestamp" or "percent"). Nil renders as an empty string.
func FormatCell(format string, v any) string {
	if v == nil {
		return ""
	}
	switch format {
	case "timestamp":
		if s, ok := v.(string); ok {
			return FormatTimestamp(s)
		}
	case "percent":
		if f, ok := ToFloat(v); ok {
			return FormatPercent(f)
		}
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
