package importer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BitwardenParser parses Bitwarden JSON export files (unencrypted exports).
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
)

type bitwardenExport struct {
	Encrypted bool            `json:"encrypted"`
	Items     []bitwardenItem `json:"items"`
}

type bitwardenItem struct {
	Type  int             `json:"type"`
	Name  string          `json:"name"`
	Notes string          `json:"notes"`
	Login *bitwardenLogin `json:"login"`
}

type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Password string         `json:"password"`
}

type bitwardenURI struct {
	URI string `json:"uri"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data. Logins contribute their password and
// secure notes their text; cards and identities are skipped.
func (p *BitwardenParser) Parse(data []byte, opts ParseOptions) (*Result, error) {
	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse Bitwarden JSON: %w", err)
	}
	if export.Encrypted {
		return nil, errors.New("encrypted Bitwarden exports are not supported, export as unencrypted JSON")
	}

	result := &Result{}
	counter := 1
	for i, item := range export.Items {
		var value, url string
		switch item.Type {
		case bitwardenTypeLogin:
			if item.Login == nil || item.Login.Password == "" {
				result.Skipped = append(result.Skipped, SkippedItem{OriginalName: item.Name, Reason: "login has no password"})
				continue
			}
			value = item.Login.Password
			if len(item.Login.URIs) > 0 {
				url = item.Login.URIs[0].URI
			}
			if item.Notes != "" {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("item %d (%s): notes were not imported", i+1, item.Name))
			}
		case bitwardenTypeSecureNote:
			if item.Notes == "" {
				result.Skipped = append(result.Skipped, SkippedItem{OriginalName: item.Name, Reason: "empty secure note"})
				continue
			}
			value = item.Notes
		default:
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: item.Name, Reason: fmt.Sprintf("unsupported item type %d", item.Type)})
			continue
		}

		result.Secrets = append(result.Secrets, &Secret{
			Key:          keyFor(item.Name, url, opts, &counter),
			OriginalName: item.Name,
			Value:        value,
		})
	}

	DeduplicateKeys(result.Secrets)
	return result, nil
}
