// Package frames yields successive camera frames from a local capture device
// or a remote MJPEG stream.
package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/nandhiniannika/online-voting/internal/config"
)

var (
	// ErrSourceUnavailable is returned when a source cannot be acquired.
	ErrSourceUnavailable = errors.New("frame source unavailable")

	// ErrFrameRead is returned by Next after the device stopped delivering frames.
	ErrFrameRead = errors.New("frame read failed")
)

// Source yields frames until it ends or is closed.
// Next blocks until a frame is available, the source ends (io.EOF or an
// error) or ctx is done. Close releases the device or connection and is safe
// to call more than once.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener acquires a Source. ctx bounds acquisition only.
type Opener interface {
	Open(ctx context.Context) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Source, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context) (Source, error) {
	return f(ctx)
}

// NewOpener returns the opener for a configured source name.
func NewOpener(name string, cfg config.FramesConfig) (Opener, error) {
	switch name {
	case config.SourceLocal:
		return &LocalOpener{Device: cfg.Device, Width: cfg.Width, Height: cfg.Height}, nil
	case config.SourceStream:
		if cfg.StreamURL == "" {
			return nil, errors.New("VIDEO_STREAM_URL is required for the stream source")
		}
		return NewStreamOpener(cfg.StreamURL), nil
	default:
		return nil, fmt.Errorf("unknown frame source %q", name)
	}
}

// producer pushes frames through emit until it returns false or there is
// nothing left. A nil return ends the source with io.EOF.
type producer func(done <-chan struct{}, emit func(image.Image) bool) error

// chanSource runs a producer goroutine feeding an unbuffered channel.
type chanSource struct {
	frames   chan image.Image
	done     chan struct{}
	finished chan struct{}
	err      error // written by the producer before frames is closed

	interrupt func()       // unblocks the producer, runs before waiting for it
	release   func() error // frees the device, runs after the producer exited

	closeOnce sync.Once
	closeErr  error
}

func startSource(produce producer, interrupt func(), release func() error) *chanSource {
	s := &chanSource{
		frames:    make(chan image.Image),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		interrupt: interrupt,
		release:   release,
	}

	go func() {
		defer close(s.finished)
		err := produce(s.done, s.emit)
		if err == nil {
			err = io.EOF
		}
		s.err = err
		close(s.frames)
	}()

	return s
}

func (s *chanSource) emit(img image.Image) bool {
	select {
	case s.frames <- img:
		return true
	case <-s.done:
		return false
	}
}

func (s *chanSource) Next(ctx context.Context) (image.Image, error) {
	select {
	case img, ok := <-s.frames:
		if !ok {
			return nil, s.err
		}
		return img, nil
	case <-s.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.interrupt != nil {
			s.interrupt()
		}
		<-s.finished
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}
