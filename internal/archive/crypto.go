package archive

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize   = 32
	NonceSize = 24 // XChaCha20-Poly1305
)

// Seal encrypts plaintext under a fresh random key and returns the sealed
// blob (nonce || ciphertext) plus the key as hex. The key travels only in the
// locator fragment; the object store never sees it.
func Seal(plaintext []byte) (sealed []byte, keyHex string, err error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, "", err
	}
	sealed = aead.Seal(nonce, nonce, plaintext, nil)
	return sealed, hex.EncodeToString(key), nil
}

// Open decrypts a sealed blob with the hex key recovered from a locator.
func Open(sealed []byte, keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes", KeySize)
	}
	if len(sealed) < NonceSize {
		return nil, fmt.Errorf("sealed blob too short")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
}
