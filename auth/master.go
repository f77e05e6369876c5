package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor for new vaults (2^12 expansion rounds).
const DefaultCost = 12

// Hasher performs one-way hashing of the master passphrase.
// The hash embeds its own random salt and never yields reusable key material;
// per-record encryption keys are derived separately by krypto.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost.
func NewHasher(cost int) (Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return Hasher{}, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return Hasher{cost: cost}, nil
}

// Hash returns the bcrypt encoding of passphrase.
func (h Hasher) Hash(passphrase string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: at most %d bytes", ErrPolicy, MaxMasterBytes)
		}
		return "", fmt.Errorf("hash master passphrase: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether passphrase matches storedHash. The comparison
// runs in constant time with respect to the hash contents.
func (h Hasher) Verify(passphrase, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(passphrase)) == nil
}
