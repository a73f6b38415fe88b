package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/forest6511/ownkey/pkg/crypto"
)

// On-disk formats recognised by Decode.
const (
	FormatEnvelope = "envelope" // encrypted {salt, nonce, ciphertext}
	FormatEntries  = "entries"  // legacy plaintext {"entries": {...}}
	FormatItems    = "items"    // legacy plaintext {"items": [{"name", "secret"}]}
)

// Envelope is the encrypted on-disk representation of a vault.
type Envelope struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

type envelopeJSON struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Decoded is the outcome of decoding a vault file. Exactly one of Envelope
// and Plain is set.
type Decoded struct {
	Format   string
	Envelope *Envelope
	Plain    *Vault
}

// Encrypted reports whether the file held an encrypted envelope.
func (d *Decoded) Encrypted() bool { return d.Envelope != nil }

// decoder tries to recognise one format. ok is false when the document is
// not in that format; err is set when it is but the contents are invalid.
type decoder struct {
	format string
	decode func(fields map[string]json.RawMessage) (out *Decoded, ok bool, err error)
}

// decoders are tried in order; the first match wins.
var decoders = []decoder{
	{FormatEnvelope, decodeEnvelope},
	{FormatEntries, decodeEntries},
	{FormatItems, decodeItems},
}

// Decode parses the contents of a vault file.
func Decode(data []byte) (*Decoded, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptVault, err)
	}

	for _, d := range decoders {
		out, ok, err := d.decode(fields)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Format = d.format
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognised vault format", ErrCorruptVault)
}

// Encode serializes an envelope as pretty-printed JSON with base64 fields.
func Encode(env *Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(envelopeJSON{
		Salt:       base64.StdEncoding.EncodeToString(env.Salt),
		Nonce:      base64.StdEncoding.EncodeToString(env.Nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(env.Ciphertext),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("vault: failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Seal encrypts v under key. salt is recorded in the envelope so the key
// can be derived again from the password.
func Seal(v *Vault, key, salt []byte) (*Envelope, error) {
	plaintext, err := marshalPlaintext(v)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(plaintext)

	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to encrypt vault: %w", err)
	}
	return &Envelope{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Open decrypts an envelope with key. A wrong key and a modified envelope
// both return ErrIncorrectPassword.
func Open(env *Envelope, key []byte) (*Vault, error) {
	plaintext, err := crypto.Decrypt(key, env.Ciphertext, env.Nonce)
	if err != nil {
		return nil, ErrIncorrectPassword
	}
	defer crypto.SecureWipe(plaintext)

	v := New()
	if err := json.Unmarshal(plaintext, v); err != nil {
		return nil, fmt.Errorf("%w: invalid vault contents", ErrCorruptVault)
	}
	if v.Entries == nil {
		v.Entries = make(map[string]string)
	}
	for name := range v.Entries {
		if err := ValidateKeyName(name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptVault, err)
		}
	}
	return v, nil
}

func marshalPlaintext(v *Vault) ([]byte, error) {
	out := Vault{Entries: v.Entries}
	if out.Entries == nil {
		out.Entries = map[string]string{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to marshal vault: %w", err)
	}
	return data, nil
}

func decodeEnvelope(fields map[string]json.RawMessage) (*Decoded, bool, error) {
	for _, name := range []string{"salt", "nonce", "ciphertext"} {
		if _, ok := fields[name]; !ok {
			return nil, false, nil
		}
	}

	var raw envelopeJSON
	for name, dst := range map[string]*string{"salt": &raw.Salt, "nonce": &raw.Nonce, "ciphertext": &raw.Ciphertext} {
		if err := json.Unmarshal(fields[name], dst); err != nil {
			return nil, false, fmt.Errorf("%w: %s is not a string", ErrCorruptVault, name)
		}
	}

	env := &Envelope{}
	var err error
	if env.Salt, err = base64.StdEncoding.DecodeString(raw.Salt); err != nil || len(env.Salt) != crypto.SaltLength {
		return nil, false, fmt.Errorf("%w: invalid salt", ErrCorruptVault)
	}
	if env.Nonce, err = base64.StdEncoding.DecodeString(raw.Nonce); err != nil || len(env.Nonce) != crypto.NonceLength {
		return nil, false, fmt.Errorf("%w: invalid nonce", ErrCorruptVault)
	}
	if env.Ciphertext, err = base64.StdEncoding.DecodeString(raw.Ciphertext); err != nil {
		return nil, false, fmt.Errorf("%w: invalid ciphertext encoding", ErrCorruptVault)
	}
	return &Decoded{Envelope: env}, true, nil
}

func decodeEntries(fields map[string]json.RawMessage) (*Decoded, bool, error) {
	raw, ok := fields["entries"]
	if !ok {
		return nil, false, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Not a string map; let later decoders try.
		return nil, false, nil
	}

	v := New()
	for k, val := range entries {
		// Unusable names are dropped, as in the items format.
		if ValidateKeyName(k) != nil {
			continue
		}
		v.Entries[k] = val
	}
	return &Decoded{Plain: v}, true, nil
}

func decodeItems(fields map[string]json.RawMessage) (*Decoded, bool, error) {
	raw, ok := fields["items"]
	if !ok {
		return nil, false, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, nil
	}

	v := New()
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		rawName, ok := obj["name"]
		if !ok {
			continue
		}
		var name string
		if err := json.Unmarshal(rawName, &name); err != nil || ValidateKeyName(name) != nil {
			continue
		}
		var secret string
		if rawSecret, ok := obj["secret"]; ok {
			// Non-string secrets are treated as missing.
			var s string
			if err := json.Unmarshal(rawSecret, &s); err == nil {
				secret = s
			}
		}
		v.Entries[name] = secret
	}
	return &Decoded{Plain: v}, true, nil
}
