// Package sensitive encrypts flagged field values at submission time using
// an authenticated symmetric scheme (AES-256-GCM). The key comes from the
// deployment; when none is configured the cipher is disabled and the caller
// submits plaintext. That fail-open behavior is a documented policy gap, not
// an accident: submission availability was chosen over confidentiality in
// the original system and is preserved here.
package sensitive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// AlgAESGCM tags envelopes produced by this package.
const AlgAESGCM = "aes-256-gcm"

// KeySize is the required secret length in bytes.
const KeySize = 32

// Envelope replaces a plaintext value in submitted data. All members are
// opaque printable strings so envelopes survive JSON round-trips.
type Envelope struct {
	Alg        string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

var (
	// ErrDisabled is returned by Decrypt when no key is configured.
	ErrDisabled = errors.New("sensitive: cipher is not configured")

	errBadKeySize = fmt.Errorf("sensitive: key must be %d bytes", KeySize)
)

// Cipher performs envelope encryption for sensitive fields. The zero value
// is a disabled cipher: Enabled reports false and Encrypt passes values
// through untouched.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// Option customises cipher construction.
type Option func(*Cipher)

// WithRand overrides the nonce source. Tests use this for determinism.
func WithRand(r io.Reader) Option {
	return func(c *Cipher) {
		c.rand = r
	}
}

// New builds a cipher from a 32-byte secret. A nil or empty key yields a
// disabled cipher without error, matching the fail-open submission policy.
func New(key []byte, options ...Option) (*Cipher, error) {
	c := &Cipher{rand: rand.Reader}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if len(key) == 0 {
		return c, nil
	}
	if len(key) != KeySize {
		return nil, errBadKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sensitive: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sensitive: %w", err)
	}
	c.aead = aead
	return c, nil
}

// Enabled reports whether a key is configured.
func (c *Cipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Encrypt seals a plaintext into an envelope. Calling Encrypt on a disabled
// cipher is an error; callers should branch on Enabled first.
func (c *Cipher) Encrypt(plaintext string) (Envelope, error) {
	if !c.Enabled() {
		return Envelope{}, ErrDisabled
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return Envelope{}, fmt.Errorf("sensitive: nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return Envelope{
		Alg:        AlgAESGCM,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// Decrypt opens an envelope produced by Encrypt with the same key.
func (c *Cipher) Decrypt(env Envelope) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if env.Alg != AlgAESGCM {
		return "", fmt.Errorf("sensitive: unsupported algorithm %q", env.Alg)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", fmt.Errorf("sensitive: nonce: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("sensitive: ciphertext: %w", err)
	}
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("sensitive: open: %w", err)
	}
	return string(plain), nil
}
