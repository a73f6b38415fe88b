package cli

import (
	"strings"

	"golang.org/x/text/cases"
)

// PreviewLength is the number of characters of a value shown in search
// results.
const PreviewLength = 12

// Match is a search hit.
type Match struct {
	Key     string
	Preview string
}

// Search returns the entries whose name or value contains keyword, compared
// with Unicode case folding. keys fixes the result order.
func Search(keys []string, entries map[string]string, keyword string) []Match {
	fold := cases.Fold()
	needle := fold.String(keyword)

	var matches []Match
	for _, key := range keys {
		value := entries[key]
		if strings.Contains(fold.String(key), needle) || strings.Contains(fold.String(value), needle) {
			matches = append(matches, Match{Key: key, Preview: Preview(value)})
		}
	}
	return matches
}

// Preview returns the first PreviewLength characters of value.
func Preview(value string) string {
	runes := []rune(value)
	if len(runes) <= PreviewLength {
		return value
	}
	return string(runes[:PreviewLength])
}
