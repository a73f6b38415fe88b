package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DotenvParser parses KEY=VALUE files as used by dotenv loaders.
type DotenvParser struct{}

// Source returns the source type for this parser.
func (p *DotenvParser) Source() Source {
	return SourceDotenv
}

// Parse parses dotenv data. Blank lines and '#' comments are ignored, an
// "export " prefix is accepted and double-quoted values are unescaped.
func (p *DotenvParser) Parse(data []byte, _ ParseOptions) (*Result, error) {
	result := &Result{}
	counter := 1

	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		name, raw, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: expected KEY=VALUE", lineNum))
			continue
		}

		value, err := dotenvValue(strings.TrimSpace(raw))
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: name, Reason: err.Error()})
			continue
		}

		result.Secrets = append(result.Secrets, &Secret{
			Key:          keyFor(name, "", ParseOptions{PreserveCase: true}, &counter),
			OriginalName: name,
			Value:        value,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dotenv data: %w", err)
	}

	DeduplicateKeys(result.Secrets)
	return result, nil
}

func dotenvValue(raw string) (string, error) {
	switch {
	case strings.HasPrefix(raw, `"`):
		v, err := strconv.Unquote(raw)
		if err != nil {
			return "", errors.New("malformed quoted value")
		}
		return v, nil
	case strings.HasPrefix(raw, "'"):
		if len(raw) < 2 || !strings.HasSuffix(raw, "'") {
			return "", errors.New("unterminated single-quoted value")
		}
		return raw[1 : len(raw)-1], nil
	default:
		// Unquoted values end at an inline comment.
		if i := strings.Index(raw, " #"); i != -1 {
			raw = strings.TrimSpace(raw[:i])
		}
		return raw, nil
	}
}
