package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/forest6511/ownkey/pkg/credstore"
)

// Prompts shown when a password has to be typed.
const (
	PromptUnlock  = "Enter vault password: "
	PromptNew     = "Set a new vault password: "
	PromptConfirm = "Confirm password: "
)

// RecommendedPasswordLength is the length below which advice is given.
const RecommendedPasswordLength = 12

// Prompter reads a password without echo. Implementations return
// ErrNoInteractiveInput when no terminal is attached.
type Prompter interface {
	ReadPassword(prompt string) (string, error)
}

// Options controls how a single operation finds the vault password.
type Options struct {
	// Password is used as-is when set.
	Password string
	// KeychainAccount enables credential store lookup and storage.
	KeychainAccount string
	// KeychainService is the credential store service name.
	KeychainService string
	// NoSession disables reading and writing the session cache.
	NoSession bool
}

func (o Options) service() string {
	if o.KeychainService == "" {
		return credstore.DefaultService
	}
	return o.KeychainService
}

// resolver finds the password for one operation and remembers it, so a
// second request within the same operation never prompts again.
type resolver struct {
	opts     Options
	creds    credstore.Store
	prompter Prompter
	logger   *slog.Logger

	password string
	resolved bool
}

// unlock resolves the password of an existing vault: explicit password,
// then the credential store, then a single prompt.
func (r *resolver) unlock() (string, error) {
	if r.resolved {
		return r.password, nil
	}

	if r.opts.Password != "" {
		return r.remember(r.opts.Password), nil
	}

	if r.opts.KeychainAccount != "" && r.creds != nil {
		pw, found, err := r.creds.Retrieve(r.opts.service(), r.opts.KeychainAccount)
		switch {
		case err != nil:
			r.logger.Warn("failed to read password from credential store, falling back to prompt",
				"account", r.opts.KeychainAccount, "error", err)
		case found:
			r.logger.Debug("password read from credential store", "account", r.opts.KeychainAccount)
			return r.remember(pw), nil
		default:
			r.logger.Debug("no password in credential store", "account", r.opts.KeychainAccount)
		}
	}

	pw, err := r.prompt(PromptUnlock)
	if err != nil {
		return "", err
	}
	return r.remember(pw), nil
}

// fresh resolves a password that is about to be set: the explicit password,
// or a prompt entered twice. Weak passwords produce advice, never an error.
func (r *resolver) fresh() (string, error) {
	if r.resolved {
		return r.password, nil
	}

	pw := r.opts.Password
	if pw == "" {
		first, err := r.prompt(PromptNew)
		if err != nil {
			return "", err
		}
		second, err := r.prompt(PromptConfirm)
		if err != nil {
			return "", err
		}
		if first != second {
			return "", ErrPasswordMismatch
		}
		pw = first
	}

	if pw == "" {
		return "", ErrEmptyPassword
	}
	for _, advice := range AssessPassword(pw).Warnings {
		r.logger.Warn(advice)
	}
	return r.remember(pw), nil
}

func (r *resolver) prompt(prompt string) (string, error) {
	if r.prompter == nil {
		return "", ErrNoInteractiveInput
	}
	pw, err := r.prompter.ReadPassword(prompt)
	if err != nil {
		if errors.Is(err, ErrNoInteractiveInput) {
			return "", err
		}
		return "", fmt.Errorf("vault: password prompt failed: %w", err)
	}
	return pw, nil
}

func (r *resolver) remember(pw string) string {
	r.password = pw
	r.resolved = true
	return pw
}

// PasswordStrength represents the strength level of a password
type PasswordStrength int

const (
	PasswordWeak PasswordStrength = iota
	PasswordFair
	PasswordGood
	PasswordStrong
)

// String returns a human-readable representation of password strength
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "weak"
	case PasswordFair:
		return "fair"
	case PasswordGood:
		return "good"
	case PasswordStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// PasswordAssessment is advisory: ownkey never rejects a non-empty password.
type PasswordAssessment struct {
	Strength PasswordStrength
	Warnings []string
}

// AssessPassword estimates password strength from its length and the number
// of character classes it uses.
func AssessPassword(password string) PasswordAssessment {
	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	classes := 0
	for _, has := range []bool{hasUpper, hasLower, hasDigit, hasOther} {
		if has {
			classes++
		}
	}
	length := utf8.RuneCountInString(password)

	var result PasswordAssessment
	if classes < 2 {
		result.Warnings = append(result.Warnings,
			"consider using a mix of uppercase, lowercase, numbers and symbols")
	}
	if length < RecommendedPasswordLength {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("longer passwords (%d+ characters) are more secure", RecommendedPasswordLength))
	}

	switch {
	case classes >= 3 && length >= 16:
		result.Strength = PasswordStrong
	case classes >= 2 && length >= RecommendedPasswordLength:
		result.Strength = PasswordGood
	case classes >= 2 || length >= RecommendedPasswordLength:
		result.Strength = PasswordFair
	default:
		result.Strength = PasswordWeak
	}
	return result
}
