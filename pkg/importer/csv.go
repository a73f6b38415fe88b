package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header names recognised by CSVParser, lowercased.
var (
	csvNameColumns     = []string{"name", "title"}
	csvPasswordColumns = []string{"password"}
	csvURLColumns      = []string{"url", "website", "login_uri"}
)

// CSVParser parses password manager CSV exports. The header must name a
// password column; 1Password, LastPass and Bitwarden CSV exports qualify.
type CSVParser struct{}

// Source returns the source type for this parser.
func (p *CSVParser) Source() Source {
	return SourceCSV
}

// Parse parses CSV data.
func (p *CSVParser) Parse(data []byte, opts ParseOptions) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	passwordCol := findColumn(colIndex, csvPasswordColumns)
	if passwordCol < 0 {
		return nil, fmt.Errorf("missing required column: password")
	}
	nameCol := findColumn(colIndex, csvNameColumns)
	urlCol := findColumn(colIndex, csvURLColumns)

	result := &Result{}
	counter := 1
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: failed to parse: %v", rowNum, err))
			continue
		}

		get := func(col int) string {
			if col < 0 || col >= len(row) {
				return ""
			}
			// LastPass HTML-encodes special characters.
			return decodeHTMLEntities(strings.TrimSpace(row[col]))
		}

		name, password := get(nameCol), get(passwordCol)
		if password == "" {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: name, Reason: "no password"})
			continue
		}
		result.Secrets = append(result.Secrets, &Secret{
			Key:          keyFor(name, get(urlCol), opts, &counter),
			OriginalName: name,
			Value:        password,
		})
	}

	DeduplicateKeys(result.Secrets)
	return result, nil
}

func findColumn(colIndex map[string]int, names []string) int {
	for _, name := range names {
		if i, ok := colIndex[name]; ok {
			return i
		}
	}
	return -1
}

var htmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
)

func decodeHTMLEntities(s string) string {
	return htmlEntities.Replace(s)
}
