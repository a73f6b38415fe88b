// Package crypto provides the cryptographic primitives used by ownkey.
//
// The vault envelope is sealed with AES-256-GCM under a key derived from the
// user's password with PBKDF2-HMAC-SHA256.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption (96-bit nonce, 128-bit tag)
//   - PBKDF2-HMAC-SHA256 key derivation (100,000 iterations)
//   - Fresh random salt and nonce for every encryption
//   - Opaque decryption failures (wrong key and tampering look the same)
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	salt, err := crypto.GenerateSalt()
//	key := crypto.DeriveKey([]byte("password"), salt)
//	defer crypto.SecureWipe(key)
//
//	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
//	plaintext, err := crypto.Decrypt(key, ciphertext, nonce)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and cipher parameters. These values are part of the on-disk
// format: changing any of them makes existing vaults unreadable.
const (
	// PBKDF2Iterations is the PBKDF2 iteration count.
	PBKDF2Iterations = 100_000

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// SaltLength is the length of KDF salts in bytes (128 bits).
	SaltLength = 16

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// TagLength is the length of the GCM authentication tag in bytes.
	TagLength = 16
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrDecryptionFailed is the single error for every decryption failure:
	// tag mismatch, truncated ciphertext or malformed nonce.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
)

// DeriveKey derives a 256-bit key from a password using PBKDF2-HMAC-SHA256.
//
// The result is deterministic for a given password and salt. Runtime depends
// only on the iteration count, never on the password content.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, PBKDF2Iterations, KeyLength, sha256.New)
}

// GenerateSalt returns SaltLength bytes from the system CSPRNG.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt encrypts plaintext using AES-256-GCM authenticated encryption.
//
// A fresh 12-byte nonce is drawn from crypto/rand for every call. The
// authentication tag is appended to the ciphertext.
//
// Returns ErrInvalidKeyLength if key is not 32 bytes.
func Encrypt(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// The tag is verified before any plaintext is returned. Every failure other
// than a bad key length is reported as ErrDecryptionFailed so callers cannot
// tell a wrong key from a modified ciphertext.
func Decrypt(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != NonceLength || len(ciphertext) < gcm.Overhead() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
