package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Snapshot is one stored copy of the encoded vault document.
type Snapshot struct {
	ID              int64
	TakenAt         time.Time
	Reason          string
	CredentialCount int
	Size            int
	Document        []byte // empty in listings
}

// InsertSnapshot stores an encoded document and returns its ID.
func InsertSnapshot(d *DB, takenAt time.Time, reason string, credentialCount int, document []byte) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, fmt.Errorf("database handle is nil")
	}

	res, err := d.sql.Exec(
		`INSERT INTO snapshots (taken_at, reason, credential_count, document) VALUES (?, ?, ?, ?)`,
		takenAt.UTC().Format(time.RFC3339Nano), reason, credentialCount, document,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fetch insert id: %w", err)
	}
	return id, nil
}

// ListSnapshots returns snapshot metadata, newest first.
func ListSnapshots(d *DB) ([]Snapshot, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}

	rows, err := d.sql.Query(
		`SELECT id, taken_at, reason, credential_count, length(document)
		 FROM snapshots
		 ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}
	defer rows.Close()

	var results []Snapshot
	for rows.Next() {
		var (
			s       Snapshot
			takenAt string
		)
		if err := rows.Scan(&s.ID, &takenAt, &s.Reason, &s.CredentialCount, &s.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if s.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
			return nil, fmt.Errorf("parse snapshot time: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return results, nil
}

// GetSnapshot returns a snapshot including its document.
// It returns sql.ErrNoRows if id does not exist.
func GetSnapshot(d *DB, id int64) (*Snapshot, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}

	var (
		s       Snapshot
		takenAt string
	)
	err := d.sql.QueryRow(
		`SELECT id, taken_at, reason, credential_count, document FROM snapshots WHERE id = ?`,
		id,
	).Scan(&s.ID, &takenAt, &s.Reason, &s.CredentialCount, &s.Document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	if s.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}
	s.Size = len(s.Document)
	return &s, nil
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how many were removed.
func PruneSnapshots(d *DB, keep int) (int64, error) {
	if d == nil || d.sql == nil {
		return 0, fmt.Errorf("database handle is nil")
	}
	if keep < 0 {
		keep = 0
	}

	res, err := d.sql.Exec(
		`DELETE FROM snapshots
		 WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}
