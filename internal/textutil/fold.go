// Package textutil provides accent-insensitive text matching helpers.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining marks, so "Parafusão" and
// "parafusao" compare equal.
func Fold(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// MatchesAll reports whether every term occurs in s, after folding both
// sides. Empty terms are ignored.
func MatchesAll(s string, terms []string) bool {
	folded := Fold(s)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if !strings.Contains(folded, Fold(term)) {
			return false
		}
	}
	return true
}
