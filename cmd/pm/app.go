package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Hussein-Mazeh/passvault/auth"
	"github.com/Hussein-Mazeh/passvault/internal/config"
	"github.com/Hussein-Mazeh/passvault/internal/db"
	"github.com/Hussein-Mazeh/passvault/internal/logger"
	"github.com/Hussein-Mazeh/passvault/internal/service"
	"github.com/Hussein-Mazeh/passvault/store"
)

var errAborted = userError{msg: "aborted: input closed"}

// app carries the CLI's I/O and settings across commands.
type app struct {
	stdin  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// readSecret prompts for a value without echoing it.
	readSecret func(prompt string) (string, error)

	vaultPath  string
	backupPath string
	debug      bool

	cfg *config.Config
	log zerolog.Logger
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	a := &app{
		stdin:  in,
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		log:    zerolog.Nop(),
	}
	a.readSecret = a.promptSecret
	return a
}

// configure loads the environment and applies flag overrides.
func (a *app) configure(_ *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return userError{msg: err.Error()}
	}
	if a.vaultPath != "" {
		cfg.VaultFile = a.vaultPath
	}
	if a.backupPath != "" {
		cfg.BackupFile = a.backupPath
	}

	level := cfg.LogLevel
	if a.debug {
		level = "debug"
	}
	a.log = logger.NewConsole(a.errOut, "pm", level)
	a.cfg = cfg
	a.log.Debug().Str("vault", cfg.VaultFile).Str("backups", cfg.BackupFile).Msg("configured")
	return nil
}

func (a *app) vaultFile() store.File {
	return store.File{Path: a.cfg.VaultFile}
}

// openBackups opens the snapshot database, or returns nil when backups are
// disabled or unavailable. Backups never block vault access.
func (a *app) openBackups() *db.DB {
	if a.cfg.BackupKeep <= 0 {
		return nil
	}
	d, err := db.Open(a.cfg.BackupFile)
	if err != nil {
		a.log.Warn().Err(err).Msg("backups unavailable")
		return nil
	}
	return d
}

// openService loads the vault. The returned func closes the session and
// must always be called.
func (a *app) openService() (*service.Service, func(), error) {
	h, err := auth.NewHasher(a.cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	opts := []service.Option{
		service.WithHasher(h),
		service.WithNewVaultKDF(a.cfg.KDFHeader()),
		service.WithLogger(a.log),
	}

	backups := a.openBackups()
	if backups != nil {
		opts = append(opts, service.WithSnapshotter(db.NewKeeper(backups, a.cfg.BackupKeep)))
	}

	svc, err := service.New(a.vaultFile(), opts...)
	if err != nil {
		_ = db.Close(backups)
		return nil, nil, err
	}
	return svc, func() {
		svc.Close()
		_ = db.Close(backups)
	}, nil
}

// unlocked opens the vault and runs the unlock flow: up to
// auth.MaxAttempts passphrase prompts, then lockout.
func (a *app) unlocked() (*service.Service, func(), error) {
	svc, done, err := a.openService()
	if err != nil {
		return nil, nil, err
	}
	if svc.NeedsSetup() {
		done()
		return nil, nil, store.ErrNoVault
	}

	for {
		pass, err := a.readSecret("Master passphrase: ")
		if err != nil {
			done()
			return nil, nil, err
		}
		err = svc.Unlock(pass)
		switch {
		case err == nil:
			return svc, done, nil
		case errors.Is(err, auth.ErrWrongPassphrase):
			fmt.Fprintf(a.errOut, "Wrong master passphrase. %d attempt(s) left.\n", svc.Remaining())
		default:
			done()
			return nil, nil, err
		}
	}
}

// readLine prompts and returns one line without its line ending.
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question; anything but yes or y is no.
func (a *app) confirm(prompt string) (bool, error) {
	ans, err := a.readLine(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(ans)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// promptSecret reads without echo on a terminal and falls back to a plain
// line when stdin is a pipe.
func (a *app) promptSecret(prompt string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.readLine(prompt)
	}

	fmt.Fprint(a.errOut, prompt)
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.errOut)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", fmt.Errorf("read secret: %w", err)
	}
	s := string(pw)
	for i := range pw {
		pw[i] = 0
	}
	return s, nil
}
