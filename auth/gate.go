package auth

import (
	"errors"
	"fmt"
)

// MaxAttempts is the number of passphrase attempts allowed per session.
const MaxAttempts = 3

// State is a step of the session authentication flow.
type State int

const (
	// StateNoVault means no master hash exists yet.
	StateNoVault State = iota
	// StateCreating means a new master passphrase is being chosen.
	StateCreating
	// StateVault means a master hash exists and no attempt has been made.
	StateVault
	// StateVerifying means at least one attempt failed and attempts remain.
	StateVerifying
	// StateAuthenticated means the session holds a verified passphrase.
	StateAuthenticated
	// StateLockedOut is terminal: all attempts were used.
	StateLockedOut
)

func (s State) String() string {
	switch s {
	case StateNoVault:
		return "no-vault"
	case StateCreating:
		return "creating"
	case StateVault:
		return "vault"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateLockedOut:
		return "locked-out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrWrongPassphrase is a failed attempt with attempts remaining.
	ErrWrongPassphrase = errors.New("wrong master passphrase")
	// ErrLockedOut ends the session after MaxAttempts failures.
	ErrLockedOut = errors.New("too many failed attempts")
	// ErrInvalidState reports a call that the current state does not allow.
	ErrInvalidState = errors.New("operation not allowed in current authentication state")
)

// Gate drives the authentication flow for one session.
//
// Without a stored hash it starts in StateNoVault and Create moves it to
// StateAuthenticated. With a stored hash it starts in StateVault; Verify
// either authenticates or burns one of MaxAttempts, ending in StateLockedOut.
type Gate struct {
	hasher    Hasher
	stored    string
	state     State
	remaining int
}

// NewGate starts a flow against storedHash ("" when no vault exists).
func NewGate(h Hasher, storedHash string) *Gate {
	g := &Gate{hasher: h, stored: storedHash, remaining: MaxAttempts}
	if storedHash == "" {
		g.state = StateNoVault
	} else {
		g.state = StateVault
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State { return g.state }

// Remaining returns how many verification attempts are left.
func (g *Gate) Remaining() int { return g.remaining }

// Authenticated reports whether the session may use the vault.
func (g *Gate) Authenticated() bool { return g.state == StateAuthenticated }

// Create validates a new passphrase and its confirmation and returns the
// hash to persist. Validation failures keep the gate in StateCreating so the
// caller can prompt again.
func (g *Gate) Create(passphrase, confirm string) (string, error) {
	if g.state != StateNoVault && g.state != StateCreating {
		return "", fmt.Errorf("%w: create from %s", ErrInvalidState, g.state)
	}
	g.state = StateCreating

	if err := ValidateMasterPassword(passphrase, confirm); err != nil {
		return "", err
	}

	hash, err := g.hasher.Hash(passphrase)
	if err != nil {
		return "", err
	}

	g.stored = hash
	g.state = StateAuthenticated
	return hash, nil
}

// Verify checks passphrase against the stored hash. It returns
// ErrWrongPassphrase while attempts remain and ErrLockedOut on the last one.
func (g *Gate) Verify(passphrase string) error {
	switch g.state {
	case StateVault, StateVerifying:
	case StateLockedOut:
		return ErrLockedOut
	default:
		return fmt.Errorf("%w: verify from %s", ErrInvalidState, g.state)
	}

	if g.hasher.Verify(passphrase, g.stored) {
		g.state = StateAuthenticated
		return nil
	}

	g.remaining--
	if g.remaining <= 0 {
		g.remaining = 0
		g.state = StateLockedOut
		return ErrLockedOut
	}
	g.state = StateVerifying
	return ErrWrongPassphrase
}
