// Package cryptox holds the reversible field transform used for PHI and
// sensitive uploads. The key comes from configuration and, in development,
// from a public fallback string, so the transform is not a security boundary.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const nonceSize = 12

// Fixed so that every process derives the same key from the same secret.
var keySalt = []byte("client-portal/cryptox/v1")

var ErrMalformedToken = errors.New("cryptox: malformed token")

type Codec struct {
	aead cipher.AEAD
}

// DeriveKey stretches secret into a 256-bit AES key.
func DeriveKey(secret string) []byte {
	return argon2.IDKey([]byte(secret), keySalt, 1, 64*1024, 4, 32)
}

func New(secret string) (*Codec, error) {
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encode serializes v to JSON, seals it with a fresh nonce and returns
// base64(nonce || ciphertext).
func (c *Codec) Encode(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cryptox: marshal: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode into v, which must be a pointer.
func (c *Codec) Decode(token string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return ErrMalformedToken
	}
	if len(raw) < nonceSize+c.aead.Overhead() {
		return ErrMalformedToken
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return fmt.Errorf("cryptox: open: %w", err)
	}

	return json.Unmarshal(plaintext, v)
}

// EncodeBytes is Encode for raw content. The JSON layer base64s the bytes.
func (c *Codec) EncodeBytes(content []byte) (string, error) {
	return c.Encode(content)
}

func (c *Codec) DecodeBytes(token string) ([]byte, error) {
	var out []byte
	if err := c.Decode(token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Digest is a one-way identifier for a sensitive value: hex SHA-256.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
