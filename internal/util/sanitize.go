package util

import (
	"regexp"
)

var tokenRegex = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// SanitizeToken removes every character that cannot be part of a column
// token: anything but letters, digits, underscores and hyphens.
func SanitizeToken(token string) string {
	return tokenRegex.ReplaceAllString(token, "")
}
