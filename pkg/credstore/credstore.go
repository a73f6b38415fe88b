// Package credstore stores vault passwords in the operating system's
// credential store (macOS Keychain, Secret Service on Linux, Windows
// Credential Manager).
package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the service name vault passwords are filed under.
const DefaultService = "ownkey"

// ErrUnavailable indicates the credential store cannot be used on this
// platform or the backend refused the request.
var ErrUnavailable = errors.New("credstore: credential store unavailable")

// Store is the credential store contract used by the vault service.
type Store interface {
	// Store saves password for the service/account pair, replacing any
	// previous value.
	Store(service, account, password string) error
	// Retrieve returns the saved password. found is false when nothing is
	// saved for the pair.
	Retrieve(service, account string) (password string, found bool, err error)
	// Delete removes a saved password. Deleting a missing entry is not an error.
	Delete(service, account string) error
}

// Keyring implements Store with the system keyring.
type Keyring struct{}

// NewKeyring returns a keyring-backed Store.
func NewKeyring() *Keyring { return &Keyring{} }

// Store saves the password in the system keyring.
func (Keyring) Store(service, account, password string) error {
	if err := keyring.Set(service, account, password); err != nil {
		return unavailable("store", err)
	}
	return nil
}

// Retrieve reads the password from the system keyring.
func (Keyring) Retrieve(service, account string) (string, bool, error) {
	password, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("retrieve", err)
	}
	return password, true, nil
}

// Delete removes the password from the system keyring.
func (Keyring) Delete(service, account string) error {
	err := keyring.Delete(service, account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return unavailable("delete", err)
}

func unavailable(op string, err error) error {
	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return fmt.Errorf("%w: unsupported platform", ErrUnavailable)
	}
	return fmt.Errorf("%w: failed to %s password: %w", ErrUnavailable, op, err)
}
