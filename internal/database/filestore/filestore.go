// Package filestore persists the identity store as a single gob file replaced
// atomically on every append.
package filestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/nandhiniannika/online-voting/internal/database"
)

// BackendName is the STORE_BACKEND value selecting this package.
const BackendName = "file"

const layoutVersion = 1

func init() {
	database.RegisterBackend(BackendName, func(_ context.Context, opts database.BackendOptions) (database.Backend, error) {
		return New(opts.Path)
	})
}

// persistedState is the on-disk layout: two co-indexed sequences.
type persistedState struct {
	Version    int
	Keys       []string
	Embeddings [][]float32
}

// Store is a file-backed database.Backend.
type Store struct {
	path string
}

// New returns a store writing to path. The parent directory is created if needed.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Name returns the backend name.
func (s *Store) Name() string {
	return BackendName
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load decodes the file. A missing file is ErrStoreMissing; an undecodable
// file or mismatched sequences is ErrStoreCorrupt.
func (s *Store) Load(_ context.Context) (*database.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, database.ErrStoreMissing
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	var state persistedState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", database.ErrStoreCorrupt, s.path, err)
	}
	if state.Version != layoutVersion {
		return nil, fmt.Errorf("%w: unsupported layout version %d", database.ErrStoreCorrupt, state.Version)
	}
	return database.NewSnapshot(state.Keys, state.Embeddings)
}

// Persist writes next to a temporary file and renames it over the old one.
// Readers of the path see either the previous or the new file, never a mix.
func (s *Store) Persist(ctx context.Context, next *database.Snapshot, _ database.IdentityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := persistedState{
		Version:    layoutVersion,
		Keys:       next.Keys(),
		Embeddings: next.Embeddings(),
	}
	if len(state.Keys) != len(state.Embeddings) {
		return fmt.Errorf("%w: refusing to write %d keys with %d embeddings", database.ErrStoreCorrupt, len(state.Keys), len(state.Embeddings))
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("%w: encoding state: %w", database.ErrPersistenceWrite, err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("%w: %w", database.ErrPersistenceWrite, err)
	}
	return nil
}

// Close is a no-op; the file is not held open between writes.
func (s *Store) Close() error {
	return nil
}
