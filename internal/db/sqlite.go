package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB wraps the SQLite handle holding vault snapshots.
type DB struct {
	sql  *sql.DB
	path string
}

// Open initialises a SQLite database at the given path and returns a DB wrapper.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if err := EnsurePerm0600(path); err != nil {
		handle.Close()
		return nil, err
	}

	d := &DB{sql: handle, path: path}
	if err := Migrate(d); err != nil {
		handle.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the database resources.
func Close(d *DB) error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Path returns the database file location.
func (d *DB) Path() string { return d.path }

// EnsurePerm0600 restricts the database file to its owner on Unix systems.
// Snapshots hold the master hash and encrypted passwords, so they get the
// same protection as the vault file.
func EnsurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod database: %w", err)
	}
	return nil
}

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at         TEXT    NOT NULL,
	reason           TEXT    NOT NULL,
	credential_count INTEGER NOT NULL,
	document         BLOB    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
`

// Migrate ensures the snapshots table (and index) exist.
func Migrate(d *DB) error {
	if d == nil || d.sql == nil {
		return fmt.Errorf("database handle is nil")
	}
	if _, err := d.sql.Exec(createSnapshotsTable); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
