package app

import (
	"fmt"
	"strings"

	"github.com/jiajunhou/daybook/internal/crypto"
)

type KeyService struct {
	key *crypto.Key
}

func NewKeyService(key *crypto.Key) *KeyService {
	return &KeyService{key: key}
}

func (s *KeyService) Encrypt(plaintext []byte) (string, error) {
	if s == nil || s.key == nil {
		return "", fmt.Errorf("encrypt: %w", ErrClosed)
	}
	return s.key.Encrypt(plaintext)
}

func (s *KeyService) Decrypt(token string) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, fmt.Errorf("decrypt: %w", ErrClosed)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}
	return s.key.Decrypt(token)
}

func (s *KeyService) Status() KeyStatus {
	if s == nil || s.key == nil {
		return KeyStatus{}
	}
	return KeyStatus{Path: s.key.Path(), Fingerprint: s.key.Fingerprint()}
}
