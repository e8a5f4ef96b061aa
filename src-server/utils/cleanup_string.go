package utils

import (
	"strings"
)

// strips spaces, collapses inner whitespace, removes trailing period
func CleanupString(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSuffix(s, ".")
	return s
}
