package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// beforeRename runs after the temp file is synced and closed, right before it
// is renamed over the target. Replaceable for testing.
var beforeRename = func(tmpPath string) error { return nil }

// AtomicReplace replaces path with contents so that a crash at any point
// leaves either the old or the new complete file.
//
// The data is written to a temp file with a random suffix in the same
// directory (mode 0600), synced, and renamed over path. The parent directory
// is synced afterwards so the rename itself is durable.
func AtomicReplace(path string, contents []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to set temp file permissions: %w", ErrIO, err)
	}
	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write temp file: %w", ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync temp file: %w", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temp file: %w", ErrIO, err)
	}

	if err := beforeRename(tmpPath); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", ErrIO, path, err)
	}
	committed = true

	if err := syncDir(dir); err != nil {
		return fmt.Errorf("%w: failed to sync directory %s: %w", ErrIO, dir, err)
	}
	return nil
}
