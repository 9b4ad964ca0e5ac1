package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// BackendOptions carries the connection settings a backend factory needs.
type BackendOptions struct {
	Path         string // file or sqlite path
	URL          string // mysql DSN or postgres URL
	MaxOpenConns int
	MaxIdleConns int
}

// BackendFactory opens a backend from options.
type BackendFactory func(ctx context.Context, opts BackendOptions) (Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// RegisterBackend registers a backend constructor under name.
// This is called by the backend packages from init to avoid import cycles.
func RegisterBackend(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// RegisteredBackends returns the names of all registered backends, sorted.
func RegisteredBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenBackend opens the backend registered under name.
func OpenBackend(ctx context.Context, name string, opts BackendOptions) (Backend, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store backend %q not registered (available: %v)", name, RegisteredBackends())
	}
	return factory(ctx, opts)
}
