package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	gcmNonceSize = 12
	gcmTagSize   = 16

	// Overhead is the number of bytes Seal adds to a plaintext (nonce + tag).
	Overhead = gcmNonceSize + gcmTagSize
)

// ErrAuthentication is returned by Open when the key is wrong or the blob was altered or truncated.
var ErrAuthentication = errors.New("authentication failed")

// Seal encrypts plaintext using AES-256-GCM and returns nonce || ciphertext || tag.
func Seal(key, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, gcmNonceSize, gcmNonceSize+len(plaintext)+gcmTagSize)
	if _, err := io.ReadFull(rand.Reader, blob); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(blob, blob[:gcmNonceSize], plaintext, aad), nil
}

// Open decrypts a blob produced by Seal. Every failure other than a bad key
// length is reported as ErrAuthentication and no plaintext is returned.
func Open(key, blob, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < Overhead {
		return nil, ErrAuthentication
	}

	plaintext, err := gcm.Open(nil, blob[:gcmNonceSize], blob[gcmNonceSize:], aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("%w: aes-gcm requires a %d-byte key", ErrInvalidInput, KeyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
