package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the IETF ChaCha20-Poly1305 nonce length carried at the front
// of every token.
const NonceSize = chacha20poly1305.NonceSize

var (
	ErrInvalidKey = errors.New("invalid key")
	ErrDecryption = errors.New("decryption failed")
)

// Encrypt seals plaintext under key with a fresh random nonce and returns
// base64(nonce || ciphertext || tag).
func Encrypt(key, plaintext []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce, err := randomNonce(NonceSize)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, NonceSize+len(plaintext)+aead.Overhead())
	sealed = append(sealed, nonce...)
	sealed = aead.Seal(sealed, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure after the key check is reported as
// ErrDecryption and no plaintext is returned.
func Decrypt(key []byte, token string) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	// Strict decoding rejects non-zero padding bits, and line breaks are
	// refused outright, so every distinct token text maps to distinct bytes.
	if strings.ContainsAny(token, "\r\n") {
		return nil, fmt.Errorf("%w: malformed token", ErrDecryption)
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed token", ErrDecryption)
	}
	if len(raw) < NonceSize+aead.Overhead() {
		return nil, fmt.Errorf("%w: token too short", ErrDecryption)
	}

	nonce, ciphertext := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidKey, chacha20poly1305.KeySize)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("construct chacha20-poly1305: %w", err)
	}
	return aead, nil
}

func randomNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}
