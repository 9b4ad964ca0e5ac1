package database

import (
	"errors"
	"fmt"
	"sync"
)

// Store errors
var (
	// ErrStoreCorrupt means the persisted key and embedding sequences disagree
	// in length, or an embedding has the wrong dimension.
	ErrStoreCorrupt = errors.New("identity store corrupt")

	// ErrStoreMissing means nothing has ever been persisted.
	ErrStoreMissing = errors.New("identity store missing")

	// ErrPersistenceWrite wraps any failure to durably write the next state.
	ErrPersistenceWrite = errors.New("identity store write failed")

	// ErrDimensionMismatch is returned for a vector whose length differs from
	// the store's embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidIdentityKey is returned for keys that are empty after normalisation.
	ErrInvalidIdentityKey = errors.New("invalid identity key")
)

// IdentityRecord associates an identity key with one face embedding.
// A key may own several records.
type IdentityRecord struct {
	IdentityKey string    `json:"identity_key"`
	Embedding   []float32 `json:"embedding"`
}

// Snapshot is an immutable, internally consistent view of the identity store.
// Keys and embeddings are co-indexed: keys[i] owns embeddings[i].
type Snapshot struct {
	keys       []string
	embeddings [][]float32
	dim        int

	indexOnce sync.Once
	index     *IdentityIndex
}

// EmptySnapshot returns a snapshot with no records.
func EmptySnapshot() *Snapshot {
	return &Snapshot{}
}

// NewSnapshot validates the two sequences and wraps them in a snapshot.
// The slices are taken over by the snapshot and must not be modified afterwards.
func NewSnapshot(keys []string, embeddings [][]float32) (*Snapshot, error) {
	if len(keys) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d keys but %d embeddings", ErrStoreCorrupt, len(keys), len(embeddings))
	}
	dim := 0
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("%w: record %d has an empty embedding", ErrStoreCorrupt, i)
		}
		if dim == 0 {
			dim = len(emb)
		} else if len(emb) != dim {
			return nil, fmt.Errorf("%w: record %d has dimension %d, expected %d", ErrStoreCorrupt, i, len(emb), dim)
		}
	}
	return &Snapshot{keys: keys, embeddings: embeddings, dim: dim}, nil
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.keys)
}

// Dim returns the embedding dimension, or 0 for an empty snapshot.
func (s *Snapshot) Dim() int {
	return s.dim
}

// Validate re-checks the co-indexing invariant.
func (s *Snapshot) Validate() error {
	if len(s.keys) != len(s.embeddings) {
		return fmt.Errorf("%w: %d keys but %d embeddings", ErrStoreCorrupt, len(s.keys), len(s.embeddings))
	}
	return nil
}

// At returns the record at position i. Embeddings are shared and read-only.
func (s *Snapshot) At(i int) IdentityRecord {
	return IdentityRecord{IdentityKey: s.keys[i], Embedding: s.embeddings[i]}
}

// Records returns all records in insertion order.
func (s *Snapshot) Records() []IdentityRecord {
	out := make([]IdentityRecord, len(s.keys))
	for i := range s.keys {
		out[i] = s.At(i)
	}
	return out
}

// Keys returns a copy of the key sequence.
func (s *Snapshot) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Embeddings returns the embedding sequence. Callers must not modify it.
func (s *Snapshot) Embeddings() [][]float32 {
	return s.embeddings
}

// KeyCounts returns how many records each key owns.
func (s *Snapshot) KeyCounts() map[string]int {
	counts := make(map[string]int)
	for _, k := range s.keys {
		counts[k]++
	}
	return counts
}

// Index returns the ANN graph over this snapshot, building it on first use.
func (s *Snapshot) Index() *IdentityIndex {
	s.indexOnce.Do(func() {
		s.index = BuildIdentityIndex(s.embeddings)
	})
	return s.index
}

// withRecord returns the next snapshot with rec appended. The receiver is unchanged.
func (s *Snapshot) withRecord(rec IdentityRecord) (*Snapshot, error) {
	if len(rec.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	if s.dim != 0 && len(rec.Embedding) != s.dim {
		return nil, fmt.Errorf("%w: got %d, store holds %d", ErrDimensionMismatch, len(rec.Embedding), s.dim)
	}
	emb := append([]float32(nil), rec.Embedding...)

	// Full slice expressions force a copy so published snapshots never share
	// a backing array with their successor.
	next := &Snapshot{
		keys:       append(s.keys[:len(s.keys):len(s.keys)], rec.IdentityKey),
		embeddings: append(s.embeddings[:len(s.embeddings):len(s.embeddings)], emb),
		dim:        len(emb),
	}
	return next, nil
}
