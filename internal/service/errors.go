package service

import (
	"errors"
	"strings"

	"github.com/Hussein-Mazeh/passvault/auth"
	"github.com/Hussein-Mazeh/passvault/internal/vault"
	"github.com/Hussein-Mazeh/passvault/krypto"
	"github.com/Hussein-Mazeh/passvault/store"
)

var (
	// ErrInvalidInput is a validation failure. The caller re-prompts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate warns that the website and username pair is already
	// stored. Retry with AllowDuplicate to store it anyway.
	ErrDuplicate = errors.New("duplicate credential")
	// ErrNotFound is a stale or unknown credential id.
	ErrNotFound = errors.New("credential not found")
	// ErrLocked means no authenticated session is open.
	ErrLocked = errors.New("vault is locked")
	// ErrSave means the vault could not be written; memory was left unchanged.
	ErrSave = errors.New("vault not saved")
)

// UserMessage turns err into a short actionable message. It never exposes
// the wrapped low-level cause except for validation text, which is written
// for the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
	case errors.Is(err, ErrDuplicate):
		return "a credential for this website and username already exists"
	case errors.Is(err, vault.ErrDecryption), errors.Is(err, krypto.ErrAuthentication):
		return "cannot recover this password"
	case errors.Is(err, ErrNotFound):
		return "no such credential; list the vault and pick again"
	case errors.Is(err, store.ErrCorrupt):
		return "the vault file is corrupted; restore it from a backup (pm backup list) and try again"
	case errors.Is(err, store.ErrNoVault):
		return "no vault found; run pm init to create one"
	case errors.Is(err, auth.ErrLockedOut):
		return "too many failed attempts; the session has ended"
	case errors.Is(err, auth.ErrWrongPassphrase):
		return "wrong master passphrase"
	case errors.Is(err, ErrLocked):
		return "the vault is locked; unlock it first"
	case errors.Is(err, ErrSave):
		return "could not save the vault; nothing was changed"
	default:
		return "unexpected error; rerun with --debug for details"
	}
}

// Expected reports whether err belongs to the error taxonomy the user is
// meant to see, as opposed to an unexpected internal failure.
func Expected(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrDuplicate, ErrNotFound, ErrLocked, ErrSave,
		vault.ErrDecryption, krypto.ErrAuthentication,
		store.ErrCorrupt, store.ErrNoVault,
		auth.ErrLockedOut, auth.ErrWrongPassphrase,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
