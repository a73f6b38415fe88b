// Package store persists vault files durably.
//
// Every access to a vault path happens under an exclusive, non-blocking
// advisory lock held on a sidecar "<vault>.lock" file. Writes go through
// AtomicReplace so the vault file always holds either the old or the new
// complete contents, and every successful write also refreshes a rolling
// backup copy under "<vault dir>/backups/".
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// File system modes for vault artifacts.
const (
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only

	// BackupDirName is the directory, next to the vault file, holding backups.
	BackupDirName = "backups"

	lockSuffix   = ".lock"
	backupSuffix = ".bak"
)

// Errors
var (
	ErrVaultBusy        = errors.New("store: vault is currently in use by another ownkey process")
	ErrNoBackup         = errors.New("store: no backup found")
	ErrNotFound         = errors.New("store: vault file not found")
	ErrIO               = errors.New("store: I/O failure")
	ErrInsufficientDisk = errors.New("store: insufficient disk space")
)

// Store performs locked reads and writes of vault files.
type Store struct {
	logger *slog.Logger
}

// New creates a Store. A nil logger discards warnings.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// BackupPath returns the rolling backup location for a vault file.
func BackupPath(path string) string {
	return filepath.Join(filepath.Dir(path), BackupDirName, filepath.Base(path)+backupSuffix)
}

// LockPath returns the sidecar lock file used for a vault file.
func LockPath(path string) string {
	return path + lockSuffix
}

// LockedRead reads the full contents of the vault file under the lock.
// File permissions are verified and corrected before reading.
func (s *Store) LockedRead(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to stat %s: %w", ErrIO, path, err)
	}

	lock, err := s.Lock(path)
	if err != nil {
		return nil, err
	}
	defer s.release(lock)

	return s.readLocked(path)
}

// LockedWrite atomically replaces the vault file and then its backup, both
// under the lock.
func (s *Store) LockedWrite(path string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("%w: failed to create vault directory: %w", ErrIO, err)
	}

	lock, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer s.release(lock)

	return s.writeLocked(path, contents)
}

// Update holds the lock across a read-modify-write cycle. fn receives the
// current contents, or nil when the vault file does not exist yet. When fn
// returns nil contents without an error nothing is written.
func (s *Store) Update(path string, fn func(current []byte) ([]byte, error)) error {
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("%w: failed to create vault directory: %w", ErrIO, err)
	}

	lock, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer s.release(lock)

	current, err := s.readLocked(path)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return s.writeLocked(path, next)
}

// RestoreBackup overwrites the vault file with its backup copy.
func (s *Store) RestoreBackup(path string) error {
	backupPath := BackupPath(path)
	if _, err := os.Stat(backupPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w at %s", ErrNoBackup, backupPath)
	}
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("%w: failed to create vault directory: %w", ErrIO, err)
	}

	lock, err := s.Lock(path)
	if err != nil {
		return err
	}
	defer s.release(lock)

	data, err := os.ReadFile(backupPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w at %s", ErrNoBackup, backupPath)
		}
		return fmt.Errorf("%w: failed to read backup: %w", ErrIO, err)
	}

	if err := s.checkDiskSpaceForWrite(filepath.Dir(path), len(data)); err != nil {
		return err
	}
	return AtomicReplace(path, data)
}

// readLocked reads the vault file. The caller must hold the lock.
func (s *Store) readLocked(path string) ([]byte, error) {
	if err := s.EnforcePermissions(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrIO, path, err)
	}
	return data, nil
}

// writeLocked replaces the vault file and refreshes the backup. The caller
// must hold the lock. A failed primary write leaves the backup untouched.
func (s *Store) writeLocked(path string, contents []byte) error {
	if err := s.checkDiskSpaceForWrite(filepath.Dir(path), len(contents)); err != nil {
		return err
	}

	if err := AtomicReplace(path, contents); err != nil {
		return err
	}

	backupPath := BackupPath(path)
	if err := os.MkdirAll(filepath.Dir(backupPath), DirMode); err != nil {
		return fmt.Errorf("%w: failed to create backup directory: %w", ErrIO, err)
	}
	if err := AtomicReplace(backupPath, contents); err != nil {
		return fmt.Errorf("failed to update backup: %w", err)
	}

	s.logger.Debug("vault written", "path", path, "bytes", len(contents))
	return nil
}

func (s *Store) release(l *Lock) {
	if err := l.Unlock(); err != nil {
		s.logger.Warn("failed to release vault lock", "path", l.path, "error", err)
	}
}
