package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases value, drops accents and joins words with hyphens.
// Letters outside ASCII (Hangul, for example) are kept as-is.
func Slugify(value string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(value))
	if err != nil {
		folded = value
	}
	folded = norm.NFKC.String(strings.ToLower(folded))

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// TruncateSlug cuts slug to at most max runes without leaving a dash at
// either end.
func TruncateSlug(slug string, max int) string {
	return strings.Trim(Truncate(slug, max), "-")
}

// Truncate cuts value to at most max runes.
func Truncate(value string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range value {
		if count == max {
			return value[:i]
		}
		count++
	}
	return value
}
