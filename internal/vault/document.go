package vault

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hussein-Mazeh/passvault/krypto"
)

// KDF names accepted in the document header.
const (
	KDFPBKDF2 = "pbkdf2-sha256"
	KDFArgon2 = "argon2id"
)

// LegacyPBKDF2Iterations applies to documents written without a kdf header.
const LegacyPBKDF2Iterations = krypto.MinPBKDF2Iterations

// KDFConfig records how every record key in a vault is derived.
type KDFConfig struct {
	Name        string `json:"name"`
	Iterations  int    `json:"iterations,omitempty"`
	MemoryMB    uint32 `json:"memoryMB,omitempty"`
	Time        uint32 `json:"time,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
}

// KDF resolves the header into a key derivation function. A nil header
// means the legacy PBKDF2 setting.
func (c *KDFConfig) KDF() (krypto.KDF, error) {
	if c == nil {
		return krypto.PBKDF2Params{Iterations: LegacyPBKDF2Iterations}, nil
	}
	switch c.Name {
	case KDFPBKDF2:
		if c.Iterations < krypto.MinPBKDF2Iterations {
			return nil, fmt.Errorf("pbkdf2 iterations %d below minimum %d", c.Iterations, krypto.MinPBKDF2Iterations)
		}
		return krypto.PBKDF2Params{Iterations: c.Iterations}, nil
	case KDFArgon2:
		p := krypto.Argon2Params{MemoryMB: c.MemoryMB, Time: c.Time, Parallelism: c.Parallelism}
		if err := p.Check(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported kdf %q", c.Name)
	}
}

// Credential is one stored login. Only EncryptedPassword is secret.
type Credential struct {
	ID                string    `json:"id"`
	Website           string    `json:"website"`
	Username          string    `json:"username"`
	EncryptedPassword string    `json:"encrypted_password"`
	CreatedAt         Timestamp `json:"created_at"`
	UpdatedAt         Timestamp `json:"updated_at"`
}

// Document is the entire persisted vault: master hash plus credentials in
// insertion order.
type Document struct {
	MasterHash  string       `json:"master_password_hash"`
	KDF         *KDFConfig   `json:"kdf,omitempty"`
	Credentials []Credential `json:"credentials"`
}

// Validate checks the invariants a loaded document must satisfy.
func (d Document) Validate() error {
	if d.MasterHash == "" {
		return errors.New("master_password_hash missing")
	}
	if _, err := d.KDF.KDF(); err != nil {
		return fmt.Errorf("kdf header: %w", err)
	}
	seen := make(map[string]struct{}, len(d.Credentials))
	for i, c := range d.Credentials {
		if c.ID == "" {
			return fmt.Errorf("credential %d: id missing", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("credential %d: duplicate id %s", i, c.ID)
		}
		seen[c.ID] = struct{}{}
		if strings.TrimSpace(c.Website) == "" {
			return fmt.Errorf("credential %d: website missing", i)
		}
		if strings.TrimSpace(c.Username) == "" {
			return fmt.Errorf("credential %d: username missing", i)
		}
		if c.EncryptedPassword == "" {
			return fmt.Errorf("credential %d: encrypted_password missing", i)
		}
	}
	return nil
}

// Clone returns a copy whose credential slice and kdf header can be
// modified without touching d.
func (d Document) Clone() Document {
	out := d
	if d.KDF != nil {
		kdf := *d.KDF
		out.KDF = &kdf
	}
	out.Credentials = append([]Credential(nil), d.Credentials...)
	return out
}

// IndexOf returns the position of the credential with id, or -1.
func (d Document) IndexOf(id string) int {
	for i := range d.Credentials {
		if d.Credentials[i].ID == id {
			return i
		}
	}
	return -1
}

// legacyLayout is the zone-less timestamp format of older vault files.
const legacyLayout = "2006-01-02T15:04:05"

// Timestamp is an ISO-8601 instant. It is written as RFC 3339 UTC and also
// reads the zone-less legacy form as local time.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("timestamp must be a string, got %s", b)
	}
	s := string(b[1 : len(b)-1])
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	parsed, err := time.ParseInLocation(legacyLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
