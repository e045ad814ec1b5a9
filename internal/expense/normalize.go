package expense

import (
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeDescription canonicalizes a description for duplicate detection:
// trimmed, lowercased, inner whitespace collapsed. Duplicate matching is
// strict equality on the normalized form; no fuzzy matching.
func NormalizeDescription(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return whitespacePattern.ReplaceAllString(s, " ")
}
