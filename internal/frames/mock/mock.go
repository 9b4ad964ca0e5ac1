// Package mock provides scripted frame sources for tests.
package mock

import (
	"context"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nandhiniannika/online-voting/internal/frames"
)

// MockOpener opens MockSources configured from its fields
type MockOpener struct {
	// Error injection
	OpenErr   error
	OpenDelay time.Duration // honours ctx

	Frames   []image.Image
	Interval time.Duration // delay before each frame
	Repeat   bool          // cycle Frames forever
	Block    bool          // after Frames, block until ctx is done
	EndErr   error         // returned after Frames when not blocking; nil means io.EOF

	mu      sync.Mutex
	opens   int
	sources []*MockSource
}

// Open returns a new MockSource or the injected error
func (o *MockOpener) Open(ctx context.Context) (frames.Source, error) {
	if o.OpenDelay > 0 {
		select {
		case <-time.After(o.OpenDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	s := &MockSource{opener: o}
	o.sources = append(o.sources, s)
	return s, nil
}

// Opens returns how many times Open was called
func (o *MockOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// Sources returns the sources handed out so far
func (o *MockOpener) Sources() []*MockSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MockSource(nil), o.sources...)
}

// MockSource replays the opener's frames
type MockSource struct {
	opener *MockOpener
	next   int
	closes atomic.Int32
	reads  atomic.Int32
}

// Next returns the next scripted frame
func (s *MockSource) Next(ctx context.Context) (image.Image, error) {
	if s.closes.Load() > 0 {
		return nil, io.EOF
	}
	o := s.opener
	if o.Interval > 0 {
		select {
		case <-time.After(o.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.next < len(o.Frames) || (o.Repeat && len(o.Frames) > 0) {
		img := o.Frames[s.next%len(o.Frames)]
		s.next++
		s.reads.Add(1)
		return img, nil
	}
	if o.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if o.EndErr != nil {
		return nil, o.EndErr
	}
	return nil, io.EOF
}

// Close records the call
func (s *MockSource) Close() error {
	s.closes.Add(1)
	return nil
}

// Closes returns how many times Close was called
func (s *MockSource) Closes() int {
	return int(s.closes.Load())
}

// Reads returns how many frames were delivered
func (s *MockSource) Reads() int {
	return int(s.reads.Load())
}
