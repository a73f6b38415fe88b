package vault

import "errors"

// Errors
var (
	ErrIncorrectPassword  = errors.New("vault: vault password is incorrect or vault is corrupted")
	ErrCorruptVault       = errors.New("vault: vault file appears damaged or truncated, a backup copy may be available")
	ErrPasswordMismatch   = errors.New("vault: passwords do not match")
	ErrNoInteractiveInput = errors.New("vault: no password available and no interactive terminal to prompt")
	ErrEmptyPassword      = errors.New("vault: password must not be empty")
	ErrSecretNotFound     = errors.New("vault: secret not found")
	ErrKeyEmpty           = errors.New("vault: key name must not be empty")
	ErrKeyTooLong         = errors.New("vault: key name too long")
)
