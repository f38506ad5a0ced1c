package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const MaxReportIDLength = 64

var reportIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidReportID checks that a share-link id is a safe slug (UUIDs included)
// before it reaches a query.
func ValidReportID(s string) bool {
	return s != "" && len(s) <= MaxReportIDLength && reportIDPattern.MatchString(s)
}

// SanitizeString removes null bytes and control characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Keep only valid UTF-8
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}
