package utils

import (
	"strings"
)

// Truncate shortens s to at most n bytes, used when logging remote response
// bodies.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StringPtr returns nil for an empty or blank string.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
