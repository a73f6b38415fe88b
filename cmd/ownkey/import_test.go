package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forest6511/ownkey/pkg/importer"
)

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportCommand(t *testing.T) {
	a, out := newTestApp(t)
	seed(t, a, out, map[string]string{"API_KEY": "keep-me"})
	file := writeImportFile(t, "API_KEY=replaced\nDB_URL=postgres://db\n")

	if err := runImport(a, file, importOptions{format: importer.SourceDotenv, dryRun: true}); err != nil {
		t.Fatalf("runImport(dry-run) error = %v", err)
	}
	if !strings.Contains(out.String(), "Would import 1 new and 0 replaced secrets, kept 1 existing.") {
		t.Errorf("output = %q", out.String())
	}
	v, err := a.service.Load(a.path, a.opts)
	if err != nil {
		t.Fatal(err)
	}
	if v.Len() != 1 {
		t.Errorf("dry run changed the vault: %v", v.Keys())
	}

	out.Reset()
	if err := runImport(a, file, importOptions{format: importer.SourceDotenv}); err != nil {
		t.Fatalf("runImport() error = %v", err)
	}
	if !strings.Contains(out.String(), "Imported 1 new and 0 replaced secrets, kept 1 existing.") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := runImport(a, file, importOptions{format: importer.SourceDotenv, overwrite: true}); err != nil {
		t.Fatalf("runImport(overwrite) error = %v", err)
	}
	v, err = a.service.Load(a.path, a.opts)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Get("API_KEY"); got != "replaced" {
		t.Errorf("API_KEY = %q, want replaced", got)
	}
	if got, _ := v.Get("DB_URL"); got != "postgres://db" {
		t.Errorf("DB_URL = %q", got)
	}
}

func TestImportCommandErrors(t *testing.T) {
	a, _ := newTestApp(t)

	if err := runImport(a, "unused", importOptions{format: "keepass"}); !errors.Is(err, importer.ErrUnknownSource) {
		t.Errorf("unknown format error = %v", err)
	}
	if err := runImport(a, filepath.Join(t.TempDir(), "missing"), importOptions{format: importer.SourceCSV}); err == nil {
		t.Error("expected error for missing file")
	}

	file := writeImportFile(t, "# nothing here\n")
	if err := runImport(a, file, importOptions{format: importer.SourceDotenv}); err != nil {
		t.Fatalf("runImport(empty) error = %v", err)
	}
	if _, err := os.Stat(a.path); !errors.Is(err, os.ErrNotExist) {
		t.Error("vault created for an empty import")
	}
}
