package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Hussein-Mazeh/passvault/krypto"
)

// ErrDecryption covers both a wrong passphrase and a damaged transport
// string. The two are deliberately indistinguishable.
var ErrDecryption = errors.New("cannot recover this password")

var passwordAAD = []byte("passvault.credential.password.v1")

var transportEncoding = base64.StdEncoding.Strict()

// Codec packs plaintext passwords into transport strings and back:
// base64(salt || nonce || ciphertext || tag). Each call derives a fresh
// key from the passphrase and a new random salt.
type Codec struct {
	kdf krypto.KDF
}

// NewCodec returns a Codec using kdf for every record key.
func NewCodec(kdf krypto.KDF) *Codec {
	return &Codec{kdf: kdf}
}

// PackPassword encrypts plain under a key derived from passphrase and a
// freshly generated salt.
func (c *Codec) PackPassword(plain string, passphrase []byte) (string, error) {
	salt, err := krypto.NewRandomSalt()
	if err != nil {
		return "", err
	}

	key, err := c.kdf.DeriveKey(passphrase, salt)
	if err != nil {
		return "", fmt.Errorf("derive record key: %w", err)
	}
	defer krypto.Wipe(key)

	blob, err := krypto.Seal(key, []byte(plain), passwordAAD)
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}

	packed := make([]byte, 0, len(salt)+len(blob))
	packed = append(packed, salt...)
	packed = append(packed, blob...)
	return transportEncoding.EncodeToString(packed), nil
}

// UnpackPassword reverses PackPassword. Any failure yields ErrDecryption.
func (c *Codec) UnpackPassword(transport string, passphrase []byte) (string, error) {
	if strings.ContainsAny(transport, "\r\n") {
		return "", ErrDecryption
	}
	packed, err := transportEncoding.DecodeString(transport)
	if err != nil {
		return "", ErrDecryption
	}
	if len(packed) < krypto.SaltLen+krypto.Overhead {
		return "", ErrDecryption
	}

	key, err := c.kdf.DeriveKey(passphrase, packed[:krypto.SaltLen])
	if err != nil {
		return "", ErrDecryption
	}
	defer krypto.Wipe(key)

	plain, err := krypto.Open(key, packed[krypto.SaltLen:], passwordAAD)
	if err != nil {
		return "", ErrDecryption
	}
	defer krypto.Wipe(plain)

	return string(plain), nil
}
