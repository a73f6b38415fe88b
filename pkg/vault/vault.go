// Package vault implements the ownkey vault: the in-memory secret map, the
// on-disk envelope codec with legacy format migration, password resolution
// and the Service that ties key derivation, encryption, the locked store and
// the session cache together.
package vault

import (
	"fmt"
	"sort"
)

// MaxKeyLength is the maximum secret name length in bytes.
const MaxKeyLength = 256

// Vault is an unordered mapping of secret names to values.
type Vault struct {
	Entries map[string]string `json:"entries"`
}

// New returns an empty vault.
func New() *Vault {
	return &Vault{Entries: make(map[string]string)}
}

// Set stores value under key, overwriting any existing value.
func (v *Vault) Set(key, value string) error {
	if err := ValidateKeyName(key); err != nil {
		return err
	}
	if v.Entries == nil {
		v.Entries = make(map[string]string)
	}
	v.Entries[key] = value
	return nil
}

// Get returns the value stored under key.
func (v *Vault) Get(key string) (string, bool) {
	value, ok := v.Entries[key]
	return value, ok
}

// Delete removes key and reports whether it was present.
func (v *Vault) Delete(key string) bool {
	if _, ok := v.Entries[key]; !ok {
		return false
	}
	delete(v.Entries, key)
	return true
}

// Keys returns the secret names in sorted order.
func (v *Vault) Keys() []string {
	keys := make([]string, 0, len(v.Entries))
	for k := range v.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of secrets.
func (v *Vault) Len() int { return len(v.Entries) }

// ValidateKeyName checks that a secret name is usable.
func ValidateKeyName(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrKeyTooLong, len(key), MaxKeyLength)
	}
	return nil
}
