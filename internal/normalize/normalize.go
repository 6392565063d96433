// Package normalize provides utilities for normalizing and sanitizing text
// before it is indexed or matched.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize removes null bytes and other control characters from strings,
// which can cause issues in databases and JSON parsing. Some upstream
// catalogs ship titles with embedded control characters.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\t') {
			return -1
		}
		return r
	}, s)
}

// Fold lowercases and strips diacritics so that "Zoë" matches "zoe".
// Used for search indexing and case-insensitive comparison, never for
// display.
func Fold(s string) string {
	s = norm.NFKD.String(Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) { // combining marks
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// CollapseWhitespace trims the string and folds runs of whitespace into
// single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
