// Package cli provides shared utilities for CLI commands.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IsPattern reports whether s contains glob characters.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// FilterKeys returns the keys matching any of the patterns, in the order of
// keys. A pattern without glob characters matches a key exactly. No patterns
// selects every key.
func FilterKeys(patterns []string, keys []string) ([]string, error) {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
	}
	if len(patterns) == 0 {
		return append([]string(nil), keys...), nil
	}

	matches := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, pattern := range patterns {
			if matchKey(pattern, key) {
				matches = append(matches, key)
				break
			}
		}
	}
	return matches, nil
}

func matchKey(pattern, key string) bool {
	if !IsPattern(pattern) {
		return pattern == key
	}
	// Syntax was validated by the caller.
	ok, _ := filepath.Match(pattern, key)
	return ok
}
