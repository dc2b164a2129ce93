package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeQuery folds a user query into a stable cache key and index-friendly
// form: trimmed, lowercased, diacritics stripped, whitespace collapsed.
// Indexers match "Les Misérables" under "les miserables" but not vice versa.
func normalizeQuery(query string) string {
	query = strings.TrimSpace(strings.ToLower(query))
	if stripped, _, err := transform.String(diacriticStripper, query); err == nil {
		query = stripped
	}
	return strings.Join(strings.Fields(query), " ")
}
