package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// IdentityStore is the append-only set of enrolled identities.
//
// Appends are serialised by a single writer lock covering read-modify-persist.
// Readers take the current Snapshot without locking; a snapshot never changes
// after it has been published, so a verification session keeps a consistent
// view even while enrollments continue.
type IdentityStore struct {
	backend Backend

	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewIdentityStore creates an empty store over backend without loading it.
func NewIdentityStore(backend Backend) *IdentityStore {
	s := &IdentityStore{backend: backend}
	s.current.Store(EmptySnapshot())
	return s
}

// Open creates a store and loads the persisted state.
// A store that was never persisted opens empty.
func Open(ctx context.Context, backend Backend) (*IdentityStore, error) {
	s := NewIdentityStore(backend)
	if err := s.Load(ctx); err != nil {
		if errors.Is(err, ErrStoreMissing) {
			log.Printf("identity store: no persisted state in %s backend, starting empty", backend.Name())
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory state with the persisted one.
// On any error the in-memory state is unchanged.
func (s *IdentityStore) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading identity store: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("loading identity store: %w", err)
	}
	s.current.Store(snap)
	log.Printf("identity store: loaded %d records (dim %d) from %s backend", snap.Len(), snap.Dim(), s.backend.Name())
	return nil
}

// Append adds one record. The key is normalised first. The next state is
// persisted before it becomes visible; if persisting fails the store is
// unchanged and the error wraps ErrPersistenceWrite.
func (s *IdentityStore) Append(ctx context.Context, key string, embedding []float32) (IdentityRecord, error) {
	k, err := NormalizeKey(key)
	if err != nil {
		return IdentityRecord{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return IdentityRecord{}, err
	}

	cur := s.current.Load()
	if err := cur.Validate(); err != nil {
		return IdentityRecord{}, err
	}

	next, err := cur.withRecord(IdentityRecord{IdentityKey: k, Embedding: embedding})
	if err != nil {
		return IdentityRecord{}, err
	}
	appended := next.At(next.Len() - 1)

	if err := s.backend.Persist(ctx, next, appended); err != nil {
		if errors.Is(err, ErrPersistenceWrite) {
			return IdentityRecord{}, err
		}
		return IdentityRecord{}, fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}

	s.current.Store(next)
	return appended, nil
}

// Snapshot returns the state after the latest completed append.
func (s *IdentityStore) Snapshot() *Snapshot {
	return s.current.Load()
}

// AllRecords returns every record in insertion order.
func (s *IdentityStore) AllRecords() ([]IdentityRecord, error) {
	snap := s.current.Load()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap.Records(), nil
}

// Len returns the number of records.
func (s *IdentityStore) Len() int {
	return s.current.Load().Len()
}

// BackendName returns the name of the persistence backend.
func (s *IdentityStore) BackendName() string {
	return s.backend.Name()
}

// Close releases the backend.
func (s *IdentityStore) Close() error {
	return s.backend.Close()
}
