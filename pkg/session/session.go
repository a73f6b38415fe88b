// Package session caches a derived vault key for a short time so that
// consecutive commands do not prompt for the password again.
//
// A single record is kept process-wide. Storing a key for one vault replaces
// any record kept for another vault.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/forest6511/ownkey/pkg/crypto"
	"github.com/forest6511/ownkey/pkg/store"
)

// DefaultTTL is how long a cached key stays valid.
const DefaultTTL = 300 * time.Second

// ErrMalformed indicates the session file could not be parsed.
var ErrMalformed = errors.New("session: malformed session record")

// record is the on-disk session format.
type record struct {
	VaultPath string `json:"vault_path"`
	KeyB64    string `json:"key_b64"`
	ExpiresAt int64  `json:"expires_at"`
}

// Status describes the cached session without exposing the key.
type Status struct {
	VaultPath string
	ExpiresAt time.Time
	Expired   bool
}

// Cache reads and writes the session record at a fixed path.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// New creates a Cache backed by the file at path. A non-positive ttl
// selects DefaultTTL.
func New(path string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{path: path, ttl: ttl, now: time.Now}
}

// Path returns the session file location.
func (c *Cache) Path() string { return c.path }

// Load returns the cached key for vaultPath. It returns nil without an error
// when there is no record, the record is for another vault, or it expired.
// Unreadable or malformed records return an error; callers treat them as
// absent.
func (c *Cache) Load(vaultPath string) ([]byte, error) {
	rec, err := c.read()
	if err != nil || rec == nil {
		return nil, err
	}

	if rec.VaultPath != vaultPath {
		return nil, nil
	}
	if c.now().Unix() > rec.ExpiresAt {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(rec.KeyB64)
	if err != nil || len(key) != crypto.KeyLength {
		return nil, fmt.Errorf("%w: invalid key", ErrMalformed)
	}
	return key, nil
}

// Store replaces the session record with key for vaultPath.
func (c *Cache) Store(vaultPath string, key []byte) error {
	rec := record{
		VaultPath: vaultPath,
		KeyB64:    base64.StdEncoding.EncodeToString(key),
		ExpiresAt: c.now().Add(c.ttl).Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: failed to marshal record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), store.DirMode); err != nil {
		return fmt.Errorf("session: failed to create directory: %w", err)
	}
	if err := store.AtomicReplace(c.path, data); err != nil {
		return fmt.Errorf("session: failed to write record: %w", err)
	}
	return nil
}

// Clear removes the session record. A missing record is not an error.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: failed to remove record: %w", err)
	}
	return nil
}

// Status reports the current record, or nil when there is none.
func (c *Cache) Status() (*Status, error) {
	rec, err := c.read()
	if err != nil || rec == nil {
		return nil, err
	}
	return &Status{
		VaultPath: rec.VaultPath,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
		Expired:   c.now().Unix() > rec.ExpiresAt,
	}, nil
}

func (c *Cache) read() (*record, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: failed to read record: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &rec, nil
}
