package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Hussein-Mazeh/passvault/internal/vault"
)

// DefaultFilename is the vault file name used when none is configured.
const DefaultFilename = "credentials.json"

var (
	// ErrNoVault means no vault file exists yet. It is the signal to start
	// vault creation, not a failure.
	ErrNoVault = errors.New("vault not initialised")

	// ErrCorrupt means the vault file exists but cannot be parsed. Callers
	// must not reinitialise over it.
	ErrCorrupt = errors.New("vault file corrupted")
)

// File locates the vault document on disk.
type File struct {
	Path string
}

// Exists reports whether the vault file is present.
func (f File) Exists() (bool, error) {
	_, err := os.Stat(f.Path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat vault: %w", err)
	}
}

// Load reads the whole document. It returns ErrNoVault when the file is
// absent and an error wrapping ErrCorrupt when it cannot be parsed.
func (f File) Load() (vault.Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vault.Document{}, ErrNoVault
		}
		return vault.Document{}, fmt.Errorf("read vault: %w", err)
	}
	return Decode(data)
}

// Save replaces the vault file with doc.
func (f File) Save(doc vault.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return f.writeAtomic(data)
}

// Restore validates a previously encoded document and writes it in place
// of the current file.
func (f File) Restore(data []byte) error {
	if _, err := Decode(data); err != nil {
		return err
	}
	return f.writeAtomic(data)
}

// Encode renders doc in the on-disk format.
func Encode(doc vault.Document) ([]byte, error) {
	if doc.Credentials == nil {
		doc.Credentials = []vault.Credential{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode vault: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates the on-disk format. Every failure wraps ErrCorrupt.
func Decode(data []byte) (vault.Document, error) {
	var doc vault.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return vault.Document{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := doc.Validate(); err != nil {
		return vault.Document{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.Credentials == nil {
		doc.Credentials = []vault.Credential{}
	}
	return doc, nil
}

// writeAtomic writes data to a temp file next to the vault, syncs it and
// renames it over the vault, so a crash leaves either the old or the new file.
func (f File) writeAtomic(data []byte) error {
	if f.Path == "" {
		return errors.New("vault path not specified")
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vault-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp vault: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp vault: %w", err)
	}

	ensurePerm0600(tmp)

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp vault: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp vault: %w", err)
	}

	if err := os.Rename(tmpPath, f.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace vault: %w", err)
	}

	syncDir(dir)
	return nil
}

// ensurePerm0600 restricts the file to its owner where the platform allows it.
func ensurePerm0600(tmp *os.File) {
	if runtime.GOOS == "windows" {
		return
	}
	_ = tmp.Chmod(0o600)
}

func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
