package crypto_test

import (
	"bytes"
	"testing"

	cryptopkg "github.com/jiajunhou/daybook/internal/crypto"
)

func BenchmarkLoadOrCreateKeyWarm(b *testing.B) {
	dir := b.TempDir()
	key, err := cryptopkg.LoadOrCreateKey(dir)
	if err != nil {
		b.Fatalf("create key: %v", err)
	}
	key.Destroy()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key, err := cryptopkg.LoadOrCreateKey(dir)
		if err != nil {
			b.Fatalf("load key: %v", err)
		}
		key.Destroy()
	}
}

func BenchmarkEncryptDecrypt(b *testing.B) {
	key, err := cryptopkg.NewKey(bytes.Repeat([]byte{0x42}, cryptopkg.KeySize))
	if err != nil {
		b.Fatalf("new key: %v", err)
	}
	defer key.Destroy()
	payload := bytes.Repeat([]byte("diary "), 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		token, err := key.Encrypt(payload)
		if err != nil {
			b.Fatalf("encrypt: %v", err)
		}
		if _, err := key.Decrypt(token); err != nil {
			b.Fatalf("decrypt: %v", err)
		}
	}
}
