//go:build !windows

package store

import (
	"fmt"
	"os"
	"path/filepath"
)

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// EnforcePermissions makes sure the vault file is readable only by its
// owner. Any other mode is corrected to 0600 with a warning. A vault
// directory readable by others only produces a warning.
func (s *Store) EnforcePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if perm := info.Mode().Perm(); perm != FileMode {
		s.logger.Warn("vault file permissions are insecure (expected 600), fixing",
			"path", path, "mode", fmt.Sprintf("%04o", perm))
		if err := os.Chmod(path, FileMode); err != nil {
			return fmt.Errorf("%w: failed to fix permissions on %s: %w", ErrIO, path, err)
		}
	}

	dir := filepath.Dir(path)
	if dinfo, err := os.Stat(dir); err == nil {
		if perm := dinfo.Mode().Perm(); perm&0077 != 0 {
			s.logger.Warn("vault directory has insecure permissions (expected 700)",
				"path", dir, "mode", fmt.Sprintf("%04o", perm))
		}
	}
	return nil
}
