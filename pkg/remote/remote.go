// Package remote implements sync backends that mirror the encrypted vault
// envelope to another location. Backends only ever see ciphertext.
package remote

import (
	"errors"
	"log/slog"
)

// Sync providers accepted in the configuration file.
const (
	ProviderLocalOnly = "local_only"
	ProviderFile      = "file"
	ProviderHTTP      = "http"
)

// Errors
var (
	ErrLoginUnsupported = errors.New("remote: login is not supported by this backend")
	ErrPushFailed       = errors.New("remote: push failed")
	ErrPullFailed       = errors.New("remote: pull failed")
)

// Backend mirrors the vault envelope to a remote location.
type Backend interface {
	// Name identifies the backend in messages.
	Name() string
	IsLoggedIn() bool
	Login(username string) error
	Logout() error
	// Pull returns the remote envelope, or nil when the remote holds none.
	Pull() ([]byte, error)
	// Push replaces the remote envelope with blob.
	Push(blob []byte) error
}

// New selects the backend for provider. Unknown and unimplemented providers
// fall back to Noop with a warning.
func New(provider, localPath, remotePath string, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch provider {
	case ProviderLocalOnly, "":
		return Noop{}
	case ProviderFile:
		return NewFile(localPath, remotePath)
	case ProviderHTTP:
		logger.Warn("http sync backend is not implemented yet, falling back to local_only")
		return Noop{}
	default:
		logger.Warn("unknown sync provider, falling back to local_only", "provider", provider)
		return Noop{}
	}
}

// Noop is the local_only backend. Every operation succeeds without effect.
type Noop struct{}

func (Noop) Name() string { return ProviderLocalOnly }

func (Noop) IsLoggedIn() bool { return false }

// Login reports ErrLoginUnsupported: there is no remote to log in to.
func (Noop) Login(string) error { return ErrLoginUnsupported }

func (Noop) Logout() error { return nil }

func (Noop) Pull() ([]byte, error) { return nil, nil }

func (Noop) Push([]byte) error { return nil }
