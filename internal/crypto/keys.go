package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeyFileName = "key.bin"
	KeySize     = chacha20poly1305.KeySize

	fingerprintBytes = 8
)

var (
	ErrCorruptKey      = errors.New("key file is corrupt")
	ErrKeyUnavailable  = errors.New("key is not loaded")
	errKeyFileConflict = errors.New("key file appeared while creating it")
)

// Key is the process-wide encryption key. The bytes live in a frozen
// memguard buffer until Destroy is called.
type Key struct {
	buf  *memguard.LockedBuffer
	path string
}

// KeyPath returns where LoadOrCreateKey keeps the key for configDir.
func KeyPath(configDir string) string {
	return filepath.Join(configDir, KeyFileName)
}

// LoadOrCreateKey reads the key from configDir, generating and persisting a
// new one only when no key file exists. A key file of the wrong size is
// reported as ErrCorruptKey and left untouched.
func LoadOrCreateKey(configDir string) (*Key, error) {
	if configDir == "" {
		return nil, fmt.Errorf("load key: config dir is empty")
	}
	path := KeyPath(configDir)

	key, err := loadKey(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key, err = createKey(configDir, path)
	if errors.Is(err, errKeyFileConflict) {
		// Another process won the race; use what it wrote.
		return loadKey(path)
	}
	return key, err
}

// NewKey copies raw into locked memory and wipes raw.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidKey, KeySize)
	}
	buf := memguard.NewBufferFromBytes(raw)
	buf.Freeze()
	return &Key{buf: buf}, nil
}

func loadKey(path string) (*Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read key file %q: %w", path, err)
	}
	if len(raw) != KeySize {
		size := len(raw)
		memguard.WipeBytes(raw)
		return nil, fmt.Errorf("%w: %q is %d bytes, want %d", ErrCorruptKey, path, size, KeySize)
	}

	key, err := NewKey(raw)
	if err != nil {
		return nil, err
	}
	key.path = path
	return key, nil
}

func createKey(configDir, path string) (*Key, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	defer memguard.WipeBytes(raw)

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	if err := publishKeyFile(configDir, path, raw); err != nil {
		return nil, err
	}

	buf := memguard.NewBufferFromBytes(raw)
	buf.Freeze()
	return &Key{buf: buf, path: path}, nil
}

// publishKeyFile writes raw to a private temp file and hard links it into
// place. The link fails if path already exists, so a key file is never
// overwritten and readers never observe a partially written key.
func publishKeyFile(dir, path string, raw []byte) error {
	f, err := os.CreateTemp(dir, ".key-*.tmp")
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return fmt.Errorf("set key file permissions: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return fmt.Errorf("write key file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close key file: %w", err)
	}

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errKeyFileConflict
		}
		return fmt.Errorf("install key file %q: %w", path, err)
	}
	return nil
}

// Path is the key file the key was loaded from, empty for keys built with
// NewKey.
func (k *Key) Path() string {
	if k == nil {
		return ""
	}
	return k.path
}

// Bytes exposes the locked key bytes. The slice must not be modified or
// retained past Destroy.
func (k *Key) Bytes() []byte {
	if !k.alive() {
		return nil
	}
	return k.buf.Bytes()
}

func (k *Key) Encrypt(plaintext []byte) (string, error) {
	if !k.alive() {
		return "", ErrKeyUnavailable
	}
	return Encrypt(k.buf.Bytes(), plaintext)
}

func (k *Key) Decrypt(token string) ([]byte, error) {
	if !k.alive() {
		return nil, ErrKeyUnavailable
	}
	return Decrypt(k.buf.Bytes(), token)
}

// Fingerprint identifies the key without revealing it: the first 8 bytes of
// its SHA-256 digest, hex encoded.
func (k *Key) Fingerprint() string {
	if !k.alive() {
		return ""
	}
	sum := sha256.Sum256(k.buf.Bytes())
	return hex.EncodeToString(sum[:fingerprintBytes])
}

func (k *Key) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	if k.buf.IsAlive() {
		k.buf.Destroy()
	}
}

func (k *Key) alive() bool {
	return k != nil && k.buf != nil && k.buf.IsAlive()
}
