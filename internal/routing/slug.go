package routing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold strips combining marks so "Allmänbildning" and "allmanbildning"
// compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slug turns a display name into the path segment used in links:
// lower case, accents folded, whitespace runs become "-", anything outside
// [a-z0-9-] is dropped and repeated dashes collapse.
func Slug(name string) string {
	return squeeze(fold(strings.ToLower(name)), '-')
}

// Key normalizes a locator for comparison with category keys, which use
// "_" as separator.
func Key(locator string) string {
	return squeeze(fold(strings.ToLower(locator)), '_')
}

func squeeze(s string, sep rune) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteRune(sep)
			}
			pending = false
			b.WriteRune(r)
		case unicode.IsSpace(r), r == sep:
			pending = true
		}
	}
	return b.String()
}
