package store

import (
	"errors"
	"fmt"
	"os"
)

// Lock is an exclusive advisory lock on a vault's sidecar lock file.
type Lock struct {
	f    *os.File
	path string
}

// Lock acquires the exclusive lock for the vault at path without blocking.
// Returns ErrVaultBusy when another process holds it. The vault directory
// must already exist.
func (s *Store) Lock(path string) (*Lock, error) {
	lockPath := LockPath(path)
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, FileMode)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open lock file: %w", ErrIO, err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, ErrVaultBusy) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to lock %s: %w", ErrIO, lockPath, err)
	}

	s.logger.Debug("vault lock acquired", "path", lockPath)
	return &Lock{f: f, path: lockPath}, nil
}

// Unlock releases the lock and closes the lock file.
// The lock file itself is left in place.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
