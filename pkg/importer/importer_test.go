package importer

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/forest6511/ownkey/pkg/vault"
)

func keysOf(secrets []*Secret) []string {
	keys := make([]string, 0, len(secrets))
	for _, s := range secrets {
		keys = append(keys, s.Key)
	}
	return keys
}

func TestSanitizeKeyName(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		preserveCase bool
		expected     string
	}{
		{"simple", "GitHub", false, "github"},
		{"preserve case", "GitHub", true, "GitHub"},
		{"spaces", "My Bank Account", false, "my_bank_account"},
		{"invalid characters", "AWS (prod)!", false, "aws_prod"},
		{"keeps separators", "db.prod/primary-1", false, "db.prod/primary-1"},
		{"unicode letters", "Café Wi-Fi", false, "café_wi-fi"},
		{"nfc normalization", "Cafe\u0301", false, "caf\u00e9"},
		{"only invalid", "!!!", false, ""},
		{"trimmed", "  padded  ", false, "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeKeyName(tt.input, tt.preserveCase); got != tt.expected {
				t.Errorf("SanitizeKeyName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeKeyNameTruncates(t *testing.T) {
	got := SanitizeKeyName(strings.Repeat("é", vault.MaxKeyLength), false)
	if got != strings.Repeat("é", vault.MaxKeyLength/2) {
		t.Errorf("SanitizeKeyName() = %q (%d bytes)", got, len(got))
	}
	if err := vault.ValidateKeyName(got); err != nil {
		t.Errorf("sanitized key rejected: %v", err)
	}
}

func TestDeduplicateKeys(t *testing.T) {
	secrets := []*Secret{{Key: "a"}, {Key: "a"}, {Key: "a_1"}, {Key: "a"}, {Key: "b"}}
	DeduplicateKeys(secrets)

	want := []string{"a", "a_1", "a_1_1", "a_2", "b"}
	if got := keysOf(secrets); !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestDeduplicateKeysRespectsMaxLength(t *testing.T) {
	long := strings.Repeat("k", vault.MaxKeyLength)
	wide := strings.Repeat("é", vault.MaxKeyLength/2)
	secrets := []*Secret{{Key: long}, {Key: long}, {Key: wide}, {Key: wide}}
	DeduplicateKeys(secrets)

	want := []string{
		long,
		strings.Repeat("k", vault.MaxKeyLength-2) + "_1",
		wide,
		strings.Repeat("é", vault.MaxKeyLength/2-1) + "_1",
	}
	if got := keysOf(secrets); !slices.Equal(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	v := vault.New()
	if _, err := Apply(v, secrets, false); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if v.Len() != len(secrets) {
		t.Errorf("vault has %d entries, want %d", v.Len(), len(secrets))
	}
}

func TestDotenvLongDuplicateNames(t *testing.T) {
	name := strings.Repeat("A", 300)
	data := []byte(name + "=one\n" + name + "=two\n")

	result, err := (&DotenvParser{}).Parse(data, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Secrets) != 2 {
		t.Fatalf("got %d secrets, want 2", len(result.Secrets))
	}
	for _, s := range result.Secrets {
		if err := vault.ValidateKeyName(s.Key); err != nil {
			t.Errorf("key of %d bytes is invalid: %v", len(s.Key), err)
		}
	}
	if result.Secrets[0].Key == result.Secrets[1].Key {
		t.Error("duplicate names were not made unique")
	}
}

func TestFallbackKey(t *testing.T) {
	tests := []struct {
		url     string
		counter int
		want    string
	}{
		{"https://www.example.com/login", 1, "example.com"},
		{"http://intranet:8080", 1, "intranet"},
		{"", 3, "imported_item_3"},
	}
	for _, tt := range tests {
		if got := fallbackKey(tt.url, tt.counter); got != tt.want {
			t.Errorf("fallbackKey(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestNewParser(t *testing.T) {
	for _, source := range Sources {
		p, err := NewParser(source)
		if err != nil {
			t.Fatalf("NewParser(%q) error = %v", source, err)
		}
		if p.Source() != source {
			t.Errorf("Source() = %q, want %q", p.Source(), source)
		}
	}

	if _, err := NewParser("keepass"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("NewParser(keepass) error = %v, want %v", err, ErrUnknownSource)
	}
}

func TestApply(t *testing.T) {
	v := vault.New()
	if err := v.Set("existing", "old"); err != nil {
		t.Fatal(err)
	}
	secrets := []*Secret{{Key: "new", Value: "1"}, {Key: "existing", Value: "2"}}

	out, err := Apply(v, secrets, false)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !slices.Equal(out.Added, []string{"new"}) || !slices.Equal(out.Kept, []string{"existing"}) || len(out.Replaced) != 0 {
		t.Errorf("outcome = %+v", out)
	}
	if got, _ := v.Get("existing"); got != "old" {
		t.Errorf("existing = %q, want unchanged", got)
	}

	out, err = Apply(v, secrets, true)
	if err != nil {
		t.Fatalf("Apply(overwrite) error = %v", err)
	}
	if !slices.Equal(out.Replaced, []string{"existing", "new"}) {
		t.Errorf("replaced = %v", out.Replaced)
	}
	if got, _ := v.Get("existing"); got != "2" {
		t.Errorf("existing = %q, want 2", got)
	}
}
