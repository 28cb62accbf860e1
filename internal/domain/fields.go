package domain

import (
	"regexp"
	"strings"
)

var fieldPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidFieldPath reports whether s is a dotted document field path such as
// "timestamp" or "result.accuracy". Operator keys ("$where") and anything that
// could break out of a quoted SQL JSON path are rejected; stores rely on this
// when they inline field paths.
func ValidFieldPath(s string) bool {
	return fieldPathRe.MatchString(s)
}

// FieldSegments splits a validated field path into its segments.
func FieldSegments(path string) []string {
	return strings.Split(path, ".")
}
