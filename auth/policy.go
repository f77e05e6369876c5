package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"
)

const (
	// MinMasterLength is the minimum master passphrase length in characters.
	MinMasterLength = 8
	// MaxMasterBytes is the bcrypt input limit.
	MaxMasterBytes = 72
)

var (
	// ErrPolicy reports a master passphrase that does not meet creation rules.
	ErrPolicy = errors.New("master passphrase rejected")
	// ErrMismatch reports a confirmation that differs from the passphrase.
	ErrMismatch = errors.New("passphrases do not match")
)

// ValidateMasterPassword applies the creation-time rules: at least
// MinMasterLength characters, at most MaxMasterBytes bytes, and a
// byte-for-byte identical confirmation.
func ValidateMasterPassword(pw, confirm string) error {
	if utf8.RuneCountInString(pw) < MinMasterLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPolicy, MinMasterLength)
	}
	if len(pw) > MaxMasterBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrPolicy, MaxMasterBytes)
	}
	if pw != confirm {
		return ErrMismatch
	}
	return nil
}

// Strength is an advisory zxcvbn estimate. It never blocks an operation.
type Strength struct {
	Score     int // 0 (weak) .. 4 (strong)
	CrackTime string
}

// Weak reports scores the CLI should warn about.
func (s Strength) Weak() bool { return s.Score < 3 }

// EstimateStrength scores pw, penalising reuse of any of the userInputs
// (website, username) inside the password.
func EstimateStrength(pw string, userInputs ...string) Strength {
	m := zxcvbn.PasswordStrength(pw, userInputs)
	return Strength{Score: m.Score, CrackTime: m.CrackTimeDisplay}
}
