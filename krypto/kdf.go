package krypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLen is the fixed per-record salt length in bytes.
	SaltLen = 16
	// KeyLen is the length of every derived key (AES-256).
	KeyLen = 32

	// MinPBKDF2Iterations is the lowest accepted PBKDF2-HMAC-SHA256 round count.
	MinPBKDF2Iterations = 100_000
	// DefaultPBKDF2Iterations is used for newly created vaults.
	DefaultPBKDF2Iterations = 600_000

	// MinArgon2MemoryMB and MinArgon2Time are the lowest accepted Argon2id costs.
	MinArgon2MemoryMB = 19
	MinArgon2Time     = 2
)

// ErrInvalidInput reports malformed key derivation input (empty passphrase, wrong salt length, bad parameters).
var ErrInvalidInput = errors.New("invalid key derivation input")

// KDF turns a passphrase and a salt into a fixed-length symmetric key.
// Implementations are pure: equal inputs always yield equal keys.
type KDF interface {
	DeriveKey(passphrase, salt []byte) ([]byte, error)
}

// PBKDF2Params configures PBKDF2 with HMAC-SHA256.
type PBKDF2Params struct {
	Iterations int
}

// DefaultPBKDF2Params returns the parameters used for new vaults.
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{Iterations: DefaultPBKDF2Iterations}
}

// DeriveKey derives a KeyLen-byte key with PBKDF2-HMAC-SHA256.
func (p PBKDF2Params) DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if err := checkInput(passphrase, salt); err != nil {
		return nil, err
	}
	if p.Iterations < MinPBKDF2Iterations {
		return nil, fmt.Errorf("%w: pbkdf2 iterations %d below minimum %d", ErrInvalidInput, p.Iterations, MinPBKDF2Iterations)
	}
	return pbkdf2.Key(passphrase, salt, p.Iterations, KeyLen, sha256.New), nil
}

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	MemoryMB    uint32
	Time        uint32
	Parallelism uint8
}

// DefaultArgon2Params returns sane defaults for deriving a 256-bit key.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryMB:    64,
		Time:        3,
		Parallelism: 1,
	}
}

// DeriveKey derives a KeyLen-byte key using Argon2id with the receiver's parameters.
func (p Argon2Params) DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if err := checkInput(passphrase, salt); err != nil {
		return nil, err
	}
	if err := p.Check(); err != nil {
		return nil, err
	}

	key := argon2.IDKey(passphrase, salt, p.Time, p.MemoryMB*1024, p.Parallelism, KeyLen)
	if len(key) != KeyLen {
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}

// Check reports parameters below the accepted Argon2id cost floor.
func (p Argon2Params) Check() error {
	if p.MemoryMB < MinArgon2MemoryMB {
		return fmt.Errorf("%w: argon2id memory %d MB below minimum %d", ErrInvalidInput, p.MemoryMB, MinArgon2MemoryMB)
	}
	if p.Time < MinArgon2Time {
		return fmt.Errorf("%w: argon2id time %d below minimum %d", ErrInvalidInput, p.Time, MinArgon2Time)
	}
	if p.Parallelism == 0 {
		return fmt.Errorf("%w: parallelism must be positive", ErrInvalidInput)
	}
	return nil
}

func checkInput(passphrase, salt []byte) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("%w: passphrase is required", ErrInvalidInput)
	}
	if len(salt) != SaltLen {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidInput, SaltLen, len(salt))
	}
	return nil
}

// NewRandomSalt returns a cryptographically secure random salt of SaltLen bytes.
func NewRandomSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Wipe overwrites sensitive byte slices in place to reduce their lifetime in memory.
func Wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
