package database

import (
	"context"
)

// SnapshotReader loads the persisted identity state
type SnapshotReader interface {
	// Load returns the persisted snapshot, ErrStoreMissing when nothing was
	// ever written, or ErrStoreCorrupt when the sequences disagree.
	Load(ctx context.Context) (*Snapshot, error)
}

// SnapshotWriter persists identity state
type SnapshotWriter interface {
	// Persist durably records next, which equals the previous snapshot plus
	// appended. Either the whole of next is visible afterwards or nothing changed.
	Persist(ctx context.Context, next *Snapshot, appended IdentityRecord) error
}

// Backend is a persistence backend for the identity store
type Backend interface {
	SnapshotReader
	SnapshotWriter

	// Name identifies the backend in logs and health output
	Name() string
	// Close releases files or connections held by the backend
	Close() error
}
