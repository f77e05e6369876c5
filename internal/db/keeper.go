package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Hussein-Mazeh/passvault/internal/vault"
	"github.com/Hussein-Mazeh/passvault/store"
)

// ErrSnapshotNotFound is returned by Keeper.Restore for an unknown id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Keeper records a snapshot of the vault after each successful save and
// keeps only the newest Keep of them.
type Keeper struct {
	db   *DB
	keep int
	now  func() time.Time
}

// NewKeeper binds a Keeper to an open database.
func NewKeeper(d *DB, keep int) *Keeper {
	return &Keeper{db: d, keep: keep, now: time.Now}
}

// Snapshot stores the encoded form of doc.
func (k *Keeper) Snapshot(reason string, doc vault.Document) error {
	data, err := store.Encode(doc)
	if err != nil {
		return err
	}
	if _, err := InsertSnapshot(k.db, k.now(), reason, len(doc.Credentials), data); err != nil {
		return err
	}
	if _, err := PruneSnapshots(k.db, k.keep); err != nil {
		return err
	}
	return nil
}

// List returns snapshot metadata, newest first.
func (k *Keeper) List() ([]Snapshot, error) {
	return ListSnapshots(k.db)
}

// Restore writes snapshot id over the vault file. The snapshot is
// validated first, so a damaged snapshot never replaces the current file.
func (k *Keeper) Restore(id int64, f store.File) error {
	snap, err := GetSnapshot(k.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrSnapshotNotFound, id)
		}
		return err
	}
	if err := f.Restore(snap.Document); err != nil {
		return fmt.Errorf("restore snapshot %d: %w", id, err)
	}
	return nil
}
