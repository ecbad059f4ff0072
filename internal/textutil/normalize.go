package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text, strips diacritics, replaces common symbols with
// word equivalents, and collapses whitespace runs. Cache fingerprints and
// comparison keys are built from normalized text, so this must stay
// deterministic.
func Normalize(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	if lowered == "" {
		return ""
	}
	if stripped, _, err := transform.String(diacriticStripper, lowered); err == nil {
		lowered = stripped
	}
	lowered = strings.ReplaceAll(lowered, "&", "and")
	lowered = strings.ReplaceAll(lowered, "+", "and")
	return strings.Join(strings.Fields(lowered), " ")
}

// NormalizeKey reduces text to letters and digits only, for exact-equality
// comparisons that should ignore punctuation and spacing.
func NormalizeKey(input string) string {
	normalized := Normalize(input)
	if normalized == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
