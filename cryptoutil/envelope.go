package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Envelope encrypts and decrypts small secrets (OAuth refresh tokens,
// PDF-open passwords) with AES-256-GCM under a single process-wide key.
//
// This is the one primitive in the module built directly on the
// standard library rather than a pack dependency — see DESIGN.md for
// why no example repo carries a suitable replacement for the original
// system's Fernet-based envelope encryption.
type Envelope struct {
	gcm cipher.AEAD
}

// NewEnvelope builds an Envelope from a 32-byte AES-256 key, typically
// loaded from the LEDGERD_ENC_KEY environment variable via config.Load.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("cryptoutil: envelope key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new gcm: %w", err)
	}
	return &Envelope{gcm: gcm}, nil
}

// Seal encrypts plaintext with a fresh random nonce, prepended to the
// ciphertext so Open needs nothing but the key to reverse it.
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptoutil: read nonce: %w", err)
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal, returning an error if sealed is too short or has
// been tampered with (GCM's authentication tag fails to verify).
func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	nonceSize := e.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("cryptoutil: sealed value shorter than nonce")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: open: %w", err)
	}
	return plaintext, nil
}

// DecodeKey base64-decodes a key loaded from the environment.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: decode key: %w", err)
	}
	return key, nil
}
