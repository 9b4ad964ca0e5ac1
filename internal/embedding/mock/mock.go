// Package mock provides a scripted embedding provider for tests.
package mock

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/nandhiniannika/online-voting/internal/embedding"
)

// Result is one scripted Detect outcome.
type Result struct {
	Faces []embedding.Face
	Err   error
}

// MockProvider returns scripted results in order, repeating the last one.
type MockProvider struct {
	mu      sync.Mutex
	results []Result
	calls   int

	// Delay is applied to every call and honours context cancellation
	Delay time.Duration
}

// NewMockProvider creates a provider returning results in order
func NewMockProvider(results ...Result) *MockProvider {
	return &MockProvider{results: results}
}

// WithEmbeddings builds a result with one face per embedding
func WithEmbeddings(embs ...[]float32) Result {
	faces := make([]embedding.Face, len(embs))
	for i, e := range embs {
		faces[i] = embedding.Face{BBox: image.Rect(10*i, 10, 10*i+8, 18), Embedding: e}
	}
	return Result{Faces: faces}
}

// Detect returns the next scripted result
func (m *MockProvider) Detect(ctx context.Context, img image.Image) ([]embedding.Face, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.results) == 0 {
		return nil, nil
	}
	idx := m.calls - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	r := m.results[idx]
	return r.Faces, r.Err
}

// Calls returns how many times Detect ran to completion or error
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
