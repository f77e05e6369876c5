package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Hussein-Mazeh/passvault/auth"
	"github.com/Hussein-Mazeh/passvault/internal/vault"
	"github.com/Hussein-Mazeh/passvault/krypto"
	"github.com/Hussein-Mazeh/passvault/store"
)

// Store loads and saves the whole vault document. store.File implements it.
type Store interface {
	Load() (vault.Document, error)
	Save(doc vault.Document) error
}

// Snapshotter records a copy of every saved document. db.Keeper implements it.
type Snapshotter interface {
	Snapshot(reason string, doc vault.Document) error
}

// Service exposes high-level vault operations for the CLI. It is meant for
// one interactive session and is not safe for concurrent use.
type Service struct {
	store    Store
	snap     Snapshotter
	hasher   auth.Hasher
	newKDF   *vault.KDFConfig
	validate *validator.Validate
	now      func() time.Time
	log      zerolog.Logger

	gate   *auth.Gate
	doc    vault.Document
	codec  *vault.Codec
	secret *auth.Passphrase
}

// Option configures a Service.
type Option func(*Service)

// WithHasher sets the master passphrase hasher used for new vaults and verification.
func WithHasher(h auth.Hasher) Option { return func(s *Service) { s.hasher = h } }

// WithNewVaultKDF sets the kdf header written by Create.
func WithNewVaultKDF(c *vault.KDFConfig) Option { return func(s *Service) { s.newKDF = c } }

// WithSnapshotter enables backups after each save.
func WithSnapshotter(sn Snapshotter) Option { return func(s *Service) { s.snap = sn } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// New loads the vault from st. A missing vault is not an error: the
// service starts in auth.StateNoVault and expects Create. A corrupt vault
// is returned as an error wrapping store.ErrCorrupt and must end the session.
func New(st Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:    st,
		hasher:   auth.Hasher{},
		newKDF:   &vault.KDFConfig{Name: vault.KDFPBKDF2, Iterations: krypto.DefaultPBKDF2Iterations},
		validate: validator.New(),
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := st.Load()
	switch {
	case errors.Is(err, store.ErrNoVault):
		s.gate = auth.NewGate(s.hasher, "")
		return s, nil
	case err != nil:
		s.log.Error().Stack().Err(err).Msg("load vault")
		return nil, err
	}

	kdf, err := doc.KDF.KDF()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrCorrupt, err)
	}
	s.doc = doc
	s.codec = vault.NewCodec(kdf)
	s.gate = auth.NewGate(s.hasher, doc.MasterHash)
	return s, nil
}

// NeedsSetup reports whether no vault exists yet.
func (s *Service) NeedsSetup() bool {
	st := s.gate.State()
	return st == auth.StateNoVault || st == auth.StateCreating
}

// State returns the authentication state of the session.
func (s *Service) State() auth.State { return s.gate.State() }

// Remaining returns how many unlock attempts are left.
func (s *Service) Remaining() int { return s.gate.Remaining() }

// Create initialises a new vault protected by passphrase. Policy and
// confirmation failures wrap ErrInvalidInput and leave the service ready
// for another attempt.
func (s *Service) Create(passphrase, confirm string) error {
	hash, err := s.gate.Create(passphrase, confirm)
	if err != nil {
		if errors.Is(err, auth.ErrPolicy) || errors.Is(err, auth.ErrMismatch) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return err
	}

	doc := vault.Document{MasterHash: hash, Credentials: []vault.Credential{}}
	if s.newKDF != nil {
		hdr := *s.newKDF
		doc.KDF = &hdr
	}
	kdf, err := doc.KDF.KDF()
	if err != nil {
		s.gate = auth.NewGate(s.hasher, "")
		return fmt.Errorf("vault kdf: %w", err)
	}

	if err := s.store.Save(doc); err != nil {
		s.gate = auth.NewGate(s.hasher, "")
		s.log.Error().Stack().Err(err).Msg("save new vault")
		return fmt.Errorf("%w: %w", ErrSave, err)
	}

	s.doc = doc
	s.codec = vault.NewCodec(kdf)
	s.secret = auth.NewPassphrase(passphrase)
	s.log.Info().Str("kdf", kdfName(doc.KDF)).Msg("vault created")
	s.snapshot("create", doc)
	return nil
}

// Unlock verifies passphrase against the stored hash. It returns
// auth.ErrWrongPassphrase while attempts remain and auth.ErrLockedOut once
// they are exhausted.
func (s *Service) Unlock(passphrase string) error {
	if err := s.gate.Verify(passphrase); err != nil {
		switch {
		case errors.Is(err, auth.ErrLockedOut):
			s.log.Warn().Msg("unlock locked out")
		case errors.Is(err, auth.ErrWrongPassphrase):
			s.log.Warn().Int("remaining", s.gate.Remaining()).Msg("unlock failed")
		}
		return err
	}
	s.secret = auth.NewPassphrase(passphrase)
	s.log.Debug().Msg("vault unlocked")
	return nil
}

// Close ends the session and wipes the in-memory passphrase.
func (s *Service) Close() {
	s.secret.Wipe()
	s.secret = nil
}

func (s *Service) requireSession() error {
	if !s.gate.Authenticated() || s.secret.Empty() {
		return ErrLocked
	}
	return nil
}

// AddInput is a new credential. AllowDuplicate acknowledges ErrDuplicate.
type AddInput struct {
	Website        string
	Username       string
	Password       string
	AllowDuplicate bool
}

type credentialFields struct {
	Website  string `validate:"required,max=100"`
	Username string `validate:"required,max=100"`
	Password string `validate:"required,max=500"`
}

// Add stores a new credential. When the same website and username pair is
// already present it returns ErrDuplicate and stores nothing unless
// in.AllowDuplicate is set.
func (s *Service) Add(in AddInput) (vault.Credential, error) {
	if err := s.requireSession(); err != nil {
		return vault.Credential{}, err
	}

	fields := credentialFields{
		Website:  strings.TrimSpace(in.Website),
		Username: strings.TrimSpace(in.Username),
		Password: in.Password,
	}
	if err := s.check(fields); err != nil {
		return vault.Credential{}, err
	}

	if !in.AllowDuplicate && s.hasPair(fields.Website, fields.Username) {
		return vault.Credential{}, ErrDuplicate
	}

	packed, err := s.codec.PackPassword(fields.Password, s.secret.Bytes())
	if err != nil {
		return vault.Credential{}, fmt.Errorf("pack password: %w", err)
	}

	now := vault.NewTimestamp(s.now())
	c := vault.Credential{
		ID:                uuid.NewString(),
		Website:           fields.Website,
		Username:          fields.Username,
		EncryptedPassword: packed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	next := s.doc.Clone()
	next.Credentials = append(next.Credentials, c)
	if err := s.commit("add", next); err != nil {
		return vault.Credential{}, err
	}
	s.log.Info().Str("id", c.ID).Msg("credential added")
	return c, nil
}

// hasPair compares website and username exactly, including case.
func (s *Service) hasPair(website, username string) bool {
	for _, c := range s.doc.Credentials {
		if c.Website == website && c.Username == username {
			return true
		}
	}
	return false
}

// Summary describes a credential without its password. Position is the
// 1-based place in the vault's insertion order.
type Summary struct {
	Position  int
	ID        string
	Website   string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is a credential with its decrypted password. Err is set, and
// Password empty, when that one record could not be decrypted.
type Entry struct {
	Summary
	Password string
	Err      error
}

func summarize(i int, c vault.Credential) Summary {
	return Summary{
		Position:  i + 1,
		ID:        c.ID,
		Website:   c.Website,
		Username:  c.Username,
		CreatedAt: c.CreatedAt.Time,
		UpdatedAt: c.UpdatedAt.Time,
	}
}

// List returns every credential in insertion order, without passwords.
func (s *Service) List() ([]Summary, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(s.doc.Credentials))
	for i, c := range s.doc.Credentials {
		out = append(out, summarize(i, c))
	}
	return out, nil
}

// View decrypts every credential. A record that fails to decrypt is
// reported through its Entry.Err and does not stop the others.
func (s *Service) View() ([]Entry, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(s.doc.Credentials))
	for i, c := range s.doc.Credentials {
		e := Entry{Summary: summarize(i, c)}
		pw, err := s.codec.UnpackPassword(c.EncryptedPassword, s.secret.Bytes())
		if err != nil {
			s.log.Warn().Str("id", c.ID).Msg("credential could not be decrypted")
			e.Err = err
		} else {
			e.Password = pw
		}
		out = append(out, e)
	}
	return out, nil
}

// Field selects what Search matches against.
type Field int

const (
	FieldWebsite Field = iota
	FieldUsername
)

func (f Field) String() string {
	if f == FieldUsername {
		return "username"
	}
	return "website"
}

// ParseField accepts "website" or "username".
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "website", "site", "w":
		return FieldWebsite, nil
	case "username", "user", "u":
		return FieldUsername, nil
	default:
		return 0, fmt.Errorf("%w: search by website or username", ErrInvalidInput)
	}
}

// Search returns credentials whose chosen field contains term, ignoring
// case. Passwords stay encrypted; use Reveal per match.
func (s *Service) Search(field Field, term string) ([]Summary, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term must not be empty", ErrInvalidInput)
	}

	needle := strings.ToLower(term)
	var out []Summary
	for i, c := range s.doc.Credentials {
		hay := c.Website
		if field == FieldUsername {
			hay = c.Username
		}
		if strings.Contains(strings.ToLower(hay), needle) {
			out = append(out, summarize(i, c))
		}
	}
	return out, nil
}

// Reveal decrypts the password of credential id.
func (s *Service) Reveal(id string) (string, error) {
	if err := s.requireSession(); err != nil {
		return "", err
	}
	i := s.doc.IndexOf(id)
	if i < 0 {
		return "", ErrNotFound
	}
	return s.codec.UnpackPassword(s.doc.Credentials[i].EncryptedPassword, s.secret.Bytes())
}

// EditInput carries the fields to change. A nil field keeps its value.
// A non-nil Password is always re-encrypted under a fresh salt.
type EditInput struct {
	Website  *string
	Username *string
	Password *string
}

// Edit updates credential id. It keeps the id and created_at and refreshes
// updated_at.
func (s *Service) Edit(id string, in EditInput) (vault.Credential, error) {
	if err := s.requireSession(); err != nil {
		return vault.Credential{}, err
	}
	i := s.doc.IndexOf(id)
	if i < 0 {
		return vault.Credential{}, ErrNotFound
	}
	c := s.doc.Credentials[i]

	var fields credentialFields
	var names []string
	if in.Website != nil {
		fields.Website = strings.TrimSpace(*in.Website)
		names = append(names, "Website")
	}
	if in.Username != nil {
		fields.Username = strings.TrimSpace(*in.Username)
		names = append(names, "Username")
	}
	if in.Password != nil {
		fields.Password = *in.Password
		names = append(names, "Password")
	}
	if len(names) > 0 {
		if err := s.check(fields, names...); err != nil {
			return vault.Credential{}, err
		}
	}

	if in.Website != nil {
		c.Website = fields.Website
	}
	if in.Username != nil {
		c.Username = fields.Username
	}
	if in.Password != nil {
		packed, err := s.codec.PackPassword(fields.Password, s.secret.Bytes())
		if err != nil {
			return vault.Credential{}, fmt.Errorf("pack password: %w", err)
		}
		c.EncryptedPassword = packed
	}
	c.UpdatedAt = vault.NewTimestamp(s.now())

	next := s.doc.Clone()
	next.Credentials[i] = c
	if err := s.commit("edit", next); err != nil {
		return vault.Credential{}, err
	}
	s.log.Info().Str("id", c.ID).Msg("credential edited")
	return c, nil
}

// Delete removes credential id.
func (s *Service) Delete(id string) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	i := s.doc.IndexOf(id)
	if i < 0 {
		return ErrNotFound
	}

	next := s.doc.Clone()
	next.Credentials = append(next.Credentials[:i], next.Credentials[i+1:]...)
	if err := s.commit("delete", next); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("credential deleted")
	return nil
}

// commit saves next and only then makes it the in-memory document, so a
// failed save leaves the session exactly as it was.
func (s *Service) commit(op string, next vault.Document) error {
	if err := s.store.Save(next); err != nil {
		s.log.Error().Stack().Err(err).Str("op", op).Msg("save vault")
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	s.doc = next
	s.snapshot(op, next)
	return nil
}

func (s *Service) snapshot(reason string, doc vault.Document) {
	if s.snap == nil {
		return
	}
	if err := s.snap.Snapshot(reason, doc); err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Msg("backup snapshot failed")
	}
}

// check validates the named fields of f, or all of them when none are named.
func (s *Service) check(f credentialFields, names ...string) error {
	var err error
	if len(names) == 0 {
		err = s.validate.Struct(f)
	} else {
		err = s.validate.StructPartial(f, names...)
	}
	if err == nil {
		if (len(names) == 0 || contains(names, "Password")) && strings.TrimSpace(f.Password) == "" {
			return fmt.Errorf("%w: password must not be blank", ErrInvalidInput)
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate credential: %w", err)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, field)
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", ErrInvalidInput, field, fe.Param())
	default:
		return fmt.Errorf("%w: %s is not valid", ErrInvalidInput, field)
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func kdfName(c *vault.KDFConfig) string {
	if c == nil {
		return vault.KDFPBKDF2
	}
	return c.Name
}
