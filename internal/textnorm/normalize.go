// Package textnorm canonicalizes free text for matching and classification.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining marks,
// so "Gastronomía" and "gastronomia" normalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes text for comparison: lowercases, strips diacritics,
// replaces any non letter/digit/space rune with a space, collapses whitespace
// runs, and trims. It is total (never fails) and idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform can only fail on malformed UTF-8; fall back to the raw
		// input so normalization stays total.
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// Tokens splits normalized text into whitespace-separated tokens.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// TokenSet returns the set of unique tokens in normalized text.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
