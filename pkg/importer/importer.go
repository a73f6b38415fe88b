// Package importer reads secrets exported by other tools so they can be
// merged into an ownkey vault. Supported inputs are dotenv files, Bitwarden
// JSON exports and password manager CSV exports (1Password, LastPass).
package importer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/ownkey/pkg/vault"
)

// Source identifies an input format.
type Source string

const (
	SourceDotenv    Source = "dotenv"
	SourceBitwarden Source = "bitwarden"
	SourceCSV       Source = "csv"
)

// Sources lists the supported formats.
var Sources = []Source{SourceDotenv, SourceBitwarden, SourceCSV}

// ErrUnknownSource is returned for an unsupported format name.
var ErrUnknownSource = errors.New("importer: unknown import format")

// Secret is one parsed entry.
type Secret struct {
	// Key is the sanitized name the secret is stored under.
	Key string
	// OriginalName is the name found in the input.
	OriginalName string
	Value        string
}

// SkippedItem is an input entry that was not imported.
type SkippedItem struct {
	OriginalName string
	Reason       string
}

// Result contains the outcome of parsing an input file.
type Result struct {
	Secrets  []*Secret
	Warnings []string
	Skipped  []SkippedItem
}

// Parser parses one input format.
type Parser interface {
	Parse(data []byte, opts ParseOptions) (*Result, error)
	Source() Source
}

// ParseOptions contains options for parsing.
type ParseOptions struct {
	// PreserveCase prevents lowercasing of key names. Dotenv keys always
	// keep their case.
	PreserveCase bool
}

// NewParser returns the parser for source.
func NewParser(source Source) (Parser, error) {
	switch source {
	case SourceDotenv:
		return &DotenvParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceCSV:
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownSource, source, Sources)
	}
}

// SanitizeKeyName turns an arbitrary display name into a key name: Unicode
// is normalized to NFC, whitespace becomes '_', characters other than
// letters, digits and "_-./" are dropped and the result is truncated to
// vault.MaxKeyLength bytes on a character boundary.
func SanitizeKeyName(name string, preserveCase bool) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if !preserveCase {
		name = strings.ToLower(name)
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			r = '_'
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune("_-./", r):
		default:
			continue
		}
		if b.Len()+utf8.RuneLen(r) > vault.MaxKeyLength {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DeduplicateKeys makes keys unique by appending _1, _2 and so on. The base
// name is shortened when needed so the result stays within
// vault.MaxKeyLength.
func DeduplicateKeys(secrets []*Secret) {
	used := make(map[string]bool, len(secrets))
	for _, s := range secrets {
		key := s.Key
		for n := 1; used[key]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			key = truncateKey(s.Key, vault.MaxKeyLength-len(suffix)) + suffix
		}
		s.Key = key
		used[key] = true
	}
}

// truncateKey cuts key to at most limit bytes on a character boundary.
func truncateKey(key string, limit int) string {
	if len(key) <= limit {
		return key
	}
	for limit > 0 && !utf8.RuneStart(key[limit]) {
		limit--
	}
	return key[:limit]
}

// fallbackKey names an entry that has no usable name: the URL host name
// when present, otherwise imported_item_N.
func fallbackKey(url string, counter int) string {
	host := url
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if i := strings.IndexAny(host, "/:?#"); i != -1 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	if host != "" {
		return host
	}
	return fmt.Sprintf("imported_item_%d", counter)
}

// Outcome reports what Apply did.
type Outcome struct {
	Added    []string
	Replaced []string
	// Kept are keys already in the vault that were left unchanged.
	Kept []string
}

// Apply merges secrets into v. Existing keys are replaced only when
// overwrite is set.
func Apply(v *vault.Vault, secrets []*Secret, overwrite bool) (*Outcome, error) {
	out := &Outcome{}
	for _, s := range secrets {
		_, exists := v.Get(s.Key)
		switch {
		case exists && !overwrite:
			out.Kept = append(out.Kept, s.Key)
			continue
		case exists:
			out.Replaced = append(out.Replaced, s.Key)
		default:
			out.Added = append(out.Added, s.Key)
		}
		if err := v.Set(s.Key, s.Value); err != nil {
			return nil, fmt.Errorf("importer: failed to store %q: %w", s.Key, err)
		}
	}
	slices.Sort(out.Added)
	slices.Sort(out.Replaced)
	slices.Sort(out.Kept)
	return out, nil
}

// keyFor sanitizes name, falling back to url and a counter when nothing
// usable remains.
func keyFor(name, url string, opts ParseOptions, counter *int) string {
	key := SanitizeKeyName(name, opts.PreserveCase)
	if key == "" {
		key = SanitizeKeyName(fallbackKey(url, *counter), opts.PreserveCase)
		*counter++
	}
	return key
}
