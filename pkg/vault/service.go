package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/forest6511/ownkey/pkg/credstore"
	"github.com/forest6511/ownkey/pkg/crypto"
	"github.com/forest6511/ownkey/pkg/remote"
	"github.com/forest6511/ownkey/pkg/session"
	"github.com/forest6511/ownkey/pkg/store"
)

// ServiceConfig wires the collaborators of a Service. Only Store is
// required; a nil Sessions, Creds, Prompter or Remote disables that feature.
type ServiceConfig struct {
	Store    *store.Store
	Sessions *session.Cache
	Creds    credstore.Store
	Prompter Prompter
	Remote   remote.Backend
	Logger   *slog.Logger
}

// Service loads and saves vault files.
//
// Every operation resolves the password at most once, derives the key with
// the salt stored in the envelope, and goes through the locked store.
// Successful decryption or encryption refreshes the session cache.
type Service struct {
	store    *store.Store
	sessions *session.Cache
	creds    credstore.Store
	prompter Prompter
	remote   remote.Backend
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	st := cfg.Store
	if st == nil {
		st = store.New(logger)
	}
	return &Service{
		store:    st,
		sessions: cfg.Sessions,
		creds:    cfg.Creds,
		prompter: cfg.Prompter,
		remote:   cfg.Remote,
		logger:   logger,
	}
}

// opened describes how a vault file was opened.
type opened struct {
	vault      *Vault
	decoded    *Decoded
	viaSession bool
}

// sealed is an encoded envelope together with the key that produced it.
type sealed struct {
	data []byte
	key  []byte
}

func (s *Service) newResolver(opts Options) *resolver {
	return &resolver{
		opts:     opts,
		creds:    s.creds,
		prompter: s.prompter,
		logger:   s.logger,
	}
}

// Exists reports whether a vault file is present at path.
func (s *Service) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureExists creates an empty vault at path unless one exists. It reports
// whether a vault was created. A new password is resolved for the vault and
// forwarded to the credential store when an account is configured.
func (s *Service) EnsureExists(path string, opts Options) (bool, error) {
	if s.Exists(path) {
		return false, nil
	}

	r := s.newResolver(opts)
	var out *sealed
	err := s.store.Update(path, func(current []byte) ([]byte, error) {
		if current != nil {
			// Created by another process while we waited for the lock.
			return nil, nil
		}
		pw, err := r.fresh()
		if err != nil {
			return nil, err
		}
		out, err = seal(New(), pw)
		if err != nil {
			return nil, err
		}
		return out.data, nil
	})
	if err != nil {
		return false, err
	}
	if out == nil {
		return false, nil
	}
	defer crypto.SecureWipe(out.key)

	s.afterWrite(path, opts, out)
	s.rememberInCredstore(opts, r.password)
	s.logger.Debug("vault created", "path", path)
	return true, nil
}

// Load reads and decrypts the vault at path.
//
// A cached session key is tried first. If it does not open the vault the
// password is resolved and the key derived from it. A wrong password and a
// damaged ciphertext both yield ErrIncorrectPassword. Legacy plaintext files
// load without a password.
func (s *Service) Load(path string, opts Options) (*Vault, error) {
	data, err := s.store.LockedRead(path)
	if err != nil {
		return nil, err
	}

	op, err := s.open(path, data, opts, s.newResolver(opts))
	if err != nil {
		return nil, err
	}
	return op.vault, nil
}

// Save encrypts v under the resolved password with a fresh salt and nonce
// and writes it to path together with the backup copy.
func (s *Service) Save(path string, v *Vault, opts Options) error {
	pw, err := s.newResolver(opts).unlock()
	if err != nil {
		return err
	}

	out, err := seal(v, pw)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(out.key)

	if err := s.store.LockedWrite(path, out.data); err != nil {
		return err
	}
	s.afterWrite(path, opts, out)
	return nil
}

// Update loads the vault, applies fn and saves the result while holding the
// vault lock for the whole cycle. When the vault was opened with a cached
// session key, the password used for saving is first checked against the
// existing envelope so a typo cannot re-key the vault. Legacy plaintext
// vaults are encrypted under a newly set password.
func (s *Service) Update(path string, opts Options, fn func(v *Vault) error) error {
	r := s.newResolver(opts)
	var out *sealed

	err := s.store.Update(path, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
		}
		op, err := s.open(path, current, opts, r)
		if err != nil {
			return nil, err
		}
		if err := fn(op.vault); err != nil {
			return nil, err
		}

		pw, err := s.savePassword(op, r)
		if err != nil {
			return nil, err
		}
		out, err = seal(op.vault, pw)
		if err != nil {
			return nil, err
		}
		return out.data, nil
	})
	if err != nil {
		return err
	}

	defer crypto.SecureWipe(out.key)
	s.afterWrite(path, opts, out)
	return nil
}

// RotatePassword re-encrypts the vault under a new password. The current
// password is always required; a cached session key is not accepted. When
// newPassword is empty it is prompted for twice.
func (s *Service) RotatePassword(path string, opts Options, newPassword string) error {
	oldOpts := opts
	oldOpts.NoSession = true
	oldResolver := s.newResolver(oldOpts)
	newResolver := s.newResolver(Options{Password: newPassword})

	var out *sealed
	err := s.store.Update(path, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
		}
		op, err := s.open(path, current, oldOpts, oldResolver)
		if err != nil {
			return nil, err
		}
		pw, err := newResolver.fresh()
		if err != nil {
			return nil, err
		}
		out, err = seal(op.vault, pw)
		if err != nil {
			return nil, err
		}
		return out.data, nil
	})
	if err != nil {
		return err
	}

	defer crypto.SecureWipe(out.key)
	s.afterWrite(path, opts, out)
	s.rememberInCredstore(opts, newResolver.password)
	s.logger.Debug("vault password rotated", "path", path)
	return nil
}

// RestoreBackup overwrites the vault with its last good backup copy.
func (s *Service) RestoreBackup(path string) error {
	return s.store.RestoreBackup(path)
}

// Push sends the current envelope to the sync backend.
func (s *Service) Push(path string) error {
	if s.remote == nil {
		return nil
	}
	data, err := s.store.LockedRead(path)
	if err != nil {
		return err
	}
	return s.remote.Push(data)
}

// Pull replaces the local vault with the envelope held by the sync backend.
// It reports false when the remote holds nothing. Only encrypted envelopes
// are accepted.
func (s *Service) Pull(path string) (bool, error) {
	if s.remote == nil {
		return false, nil
	}
	data, err := s.remote.Pull()
	if err != nil || data == nil {
		return false, err
	}

	decoded, err := Decode(data)
	if err != nil {
		return false, fmt.Errorf("%w: remote copy rejected: %w", remote.ErrPullFailed, err)
	}
	if !decoded.Encrypted() {
		return false, fmt.Errorf("%w: remote copy is not an encrypted vault", remote.ErrPullFailed)
	}

	if err := s.store.LockedWrite(path, data); err != nil {
		return false, err
	}
	return true, nil
}

// open decodes vault contents and decrypts them if needed.
func (s *Service) open(path string, data []byte, opts Options, r *resolver) (*opened, error) {
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if !decoded.Encrypted() {
		s.logger.Debug("loaded legacy plaintext vault", "path", path, "format", decoded.Format)
		return &opened{vault: decoded.Plain, decoded: decoded}, nil
	}
	env := decoded.Envelope

	if !opts.NoSession && s.sessions != nil {
		key, err := s.sessions.Load(path)
		if err != nil {
			s.logger.Warn("ignoring unreadable session cache", "error", err)
		}
		if key != nil {
			v, err := Open(env, key)
			crypto.SecureWipe(key)
			if err == nil {
				s.logger.Debug("vault unlocked with session key", "path", path)
				return &opened{vault: v, decoded: decoded, viaSession: true}, nil
			}
			s.logger.Debug("session key rejected, asking for password", "path", path)
		}
	}

	pw, err := r.unlock()
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveKey([]byte(pw), env.Salt)
	defer crypto.SecureWipe(key)

	v, err := Open(env, key)
	if err != nil {
		return nil, err
	}
	s.storeSession(path, opts, key)
	return &opened{vault: v, decoded: decoded}, nil
}

// savePassword returns the password to seal an updated vault with.
func (s *Service) savePassword(op *opened, r *resolver) (string, error) {
	if !op.decoded.Encrypted() {
		return r.fresh()
	}
	pw, err := r.unlock()
	if err != nil {
		return "", err
	}
	if op.viaSession {
		env := op.decoded.Envelope
		key := crypto.DeriveKey([]byte(pw), env.Salt)
		_, err := Open(env, key)
		crypto.SecureWipe(key)
		if err != nil {
			return "", err
		}
	}
	return pw, nil
}

// afterWrite refreshes the session and pushes the new envelope. Neither
// failure affects the outcome of the write.
func (s *Service) afterWrite(path string, opts Options, out *sealed) {
	s.storeSession(path, opts, out.key)

	if s.remote == nil {
		return
	}
	if err := s.remote.Push(out.data); err != nil {
		s.logger.Warn("sync push failed", "backend", s.remote.Name(), "error", err)
	}
}

func (s *Service) storeSession(path string, opts Options, key []byte) {
	if opts.NoSession || s.sessions == nil {
		return
	}
	if err := s.sessions.Store(path, key); err != nil {
		s.logger.Warn("failed to update session cache", "error", err)
	}
}

func (s *Service) rememberInCredstore(opts Options, password string) {
	if opts.KeychainAccount == "" || s.creds == nil || password == "" {
		return
	}
	if err := s.creds.Store(opts.service(), opts.KeychainAccount, password); err != nil {
		s.logger.Warn("failed to save password to credential store", "account", opts.KeychainAccount, "error", err)
	}
}

// seal encrypts v under a key derived from password and a fresh salt.
func seal(v *Vault, password string) (*sealed, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveKey([]byte(password), salt)

	env, err := Seal(v, key, salt)
	if err != nil {
		crypto.SecureWipe(key)
		return nil, err
	}
	data, err := Encode(env)
	if err != nil {
		crypto.SecureWipe(key)
		return nil, err
	}
	return &sealed{data: data, key: key}, nil
}

// IsNotFound reports whether err means the vault file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
