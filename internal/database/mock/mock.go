// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/nandhiniannika/online-voting/internal/database"
)

// MockBackend is an in-memory implementation of database.Backend
type MockBackend struct {
	mu         sync.Mutex
	persisted  bool
	keys       []string
	embeddings [][]float32

	persistCalls int
	closed       bool
	appended     []database.IdentityRecord

	// Error injection
	LoadError    error
	PersistError error
	CloseError   error

	// PersistHook runs inside Persist before the state is recorded
	PersistHook func(next *database.Snapshot)
}

// NewMockBackend creates a backend with nothing persisted
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Seed sets the persisted sequences directly, including inconsistent ones
func (m *MockBackend) Seed(keys []string, embeddings [][]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted = true
	m.keys = keys
	m.embeddings = embeddings
}

// Name returns the backend name
func (m *MockBackend) Name() string {
	return "mock"
}

// Load returns the seeded or persisted state
func (m *MockBackend) Load(ctx context.Context) (*database.Snapshot, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.persisted {
		return nil, database.ErrStoreMissing
	}
	return database.NewSnapshot(append([]string(nil), m.keys...), append([][]float32(nil), m.embeddings...))
}

// Persist records next as the durable state
func (m *MockBackend) Persist(ctx context.Context, next *database.Snapshot, appended database.IdentityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistCalls++
	if m.PersistHook != nil {
		m.PersistHook(next)
	}
	if m.PersistError != nil {
		return m.PersistError
	}
	m.persisted = true
	m.keys = next.Keys()
	m.embeddings = append([][]float32(nil), next.Embeddings()...)
	m.appended = append(m.appended, appended)
	return nil
}

// Close marks the backend closed
func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

// PersistCalls returns how many times Persist was invoked
func (m *MockBackend) PersistCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistCalls
}

// PersistedKeys returns a copy of the durable key sequence
func (m *MockBackend) PersistedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

// Appended returns the records passed to successful Persist calls
func (m *MockBackend) Appended() []database.IdentityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.IdentityRecord(nil), m.appended...)
}

// Closed reports whether Close was called
func (m *MockBackend) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
