package remote

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/forest6511/ownkey/pkg/store"
)

// File mirrors the vault envelope to another path, such as a directory
// synced by a third-party tool.
type File struct {
	localPath  string
	remotePath string
}

// NewFile creates a file backend copying localPath to remotePath.
func NewFile(localPath, remotePath string) *File {
	return &File{localPath: localPath, remotePath: remotePath}
}

// Name returns the provider name.
func (f *File) Name() string { return ProviderFile }

// RemotePath returns the mirror location.
func (f *File) RemotePath() string { return f.remotePath }

// IsLoggedIn reports whether the remote copy exists.
func (f *File) IsLoggedIn() bool {
	_, err := os.Stat(f.remotePath)
	return err == nil
}

// Login prepares the remote location and seeds it from the local vault when
// the remote copy does not exist yet. The username is ignored.
func (f *File) Login(string) error {
	if err := os.MkdirAll(filepath.Dir(f.remotePath), store.DirMode); err != nil {
		return fmt.Errorf("%w: failed to create remote directory: %w", ErrPushFailed, err)
	}
	if f.IsLoggedIn() {
		return nil
	}

	data, err := os.ReadFile(f.localPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: failed to read local vault: %w", ErrPushFailed, err)
	}
	return f.Push(data)
}

// Logout has nothing to do for the file backend.
func (f *File) Logout() error { return nil }

// Pull returns the remote envelope without touching the local vault.
func (f *File) Pull() ([]byte, error) {
	data, err := os.ReadFile(f.remotePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrPullFailed, f.remotePath, err)
	}
	return data, nil
}

// Push atomically replaces the remote copy with blob.
func (f *File) Push(blob []byte) error {
	if len(blob) == 0 {
		return fmt.Errorf("%w: empty vault envelope", ErrPushFailed)
	}
	if err := os.MkdirAll(filepath.Dir(f.remotePath), store.DirMode); err != nil {
		return fmt.Errorf("%w: failed to create remote directory: %w", ErrPushFailed, err)
	}
	if err := store.AtomicReplace(f.remotePath, blob); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}
