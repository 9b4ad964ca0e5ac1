package verification

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nandhiniannika/online-voting/internal/constants"
	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/embedding"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/frames"
	"github.com/nandhiniannika/online-voting/internal/imaging"
	"github.com/nandhiniannika/online-voting/internal/metrics"
	"github.com/nandhiniannika/online-voting/internal/tracing"
)

// Snapshotter hands out the current store snapshot.
type Snapshotter interface {
	Snapshot() *database.Snapshot
}

// Settings bound a session.
type Settings struct {
	Window         time.Duration // collection window, measured from the first read; clamped to MaxSessionWindow
	AcquireTimeout time.Duration // budget for opening the source
	Mirror         bool          // flip frames horizontally before detection
	Scale          float64       // downscale factor before detection; 0 or 1 keeps the size
}

func (s Settings) withDefaults() Settings {
	if s.Window <= 0 {
		s.Window = constants.DefaultSessionWindow
	}
	if s.Window > constants.MaxSessionWindow {
		s.Window = constants.MaxSessionWindow
	}
	if s.AcquireTimeout <= 0 {
		s.AcquireTimeout = constants.DefaultAcquireTimeout
	}
	return s
}

// Session verifies one claimed identity. It runs once.
type Session struct {
	claimed   string
	snapshots Snapshotter
	opener    frames.Opener
	provider  embedding.Provider
	matcher   *facematch.Matcher
	settings  Settings
	observer  Observer
	metrics   *metrics.Registry

	ran   atomic.Bool
	state atomic.Int32

	observerOnce sync.Once
}

// NewSession prepares a session. observer and reg may be nil.
func NewSession(claimed string, snapshots Snapshotter, opener frames.Opener, provider embedding.Provider,
	matcher *facematch.Matcher, settings Settings, observer Observer, reg *metrics.Registry) *Session {
	if matcher == nil {
		matcher = facematch.NewMatcher(0, "")
	}
	return &Session{
		claimed:   claimed,
		snapshots: snapshots,
		opener:    opener,
		provider:  provider,
		matcher:   matcher,
		settings:  settings.withDefaults(),
		observer:  observer,
		metrics:   reg,
	}
}

// State returns the current state. Safe to call from any goroutine.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Run executes the session and returns the verdict.
//
// The store snapshot is taken once at the start. An empty store fails with
// facematch.ErrNoEnrolledIdentities before the source is opened. A source that
// cannot be acquired within the acquire timeout fails with
// frames.ErrSourceUnavailable. Cancelling ctx stops the session and returns
// the context error. A source that yields no usable frame within the window
// produces a rejected verdict, not an error. The source and the observer are
// released exactly once on every path.
func (s *Session) Run(ctx context.Context) (Verdict, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return Verdict{}, ErrSessionAlreadyRun
	}
	defer s.setState(StateClosed)
	defer s.closeObserver()

	ctx, span := tracing.Tracer().Start(ctx, "verification.Session")
	defer span.End()

	verdict, err := s.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Verdict{}, err
	}
	span.SetAttributes(
		attribute.String("verification.outcome", string(verdict.Outcome)),
		attribute.Int("verification.frames", verdict.FramesProcessed),
		attribute.Int("verification.matches", len(verdict.ObservedMatches)),
	)
	return verdict, nil
}

func (s *Session) run(ctx context.Context) (Verdict, error) {
	claimed, err := database.NormalizeKey(s.claimed)
	if err != nil {
		return Verdict{}, err
	}

	snap := s.snapshots.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return Verdict{}, facematch.ErrNoEnrolledIdentities
	}

	src, err := s.acquire(ctx)
	if err != nil {
		return Verdict{}, err
	}
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			if err := src.Close(); err != nil {
				log.Printf("verification: closing frame source: %v", err)
			}
		})
	}
	defer release()

	verdict := Verdict{
		ClaimedIdentity:   claimed,
		ObservedMatches:   []string{},
		ObservationCounts: map[string]int{},
	}

	done := s.metrics.SessionStarted()
	start := time.Now()
	err = s.collect(ctx, src, snap, &verdict)
	verdict.Elapsed = time.Since(start)
	done()
	release()
	if err != nil {
		return Verdict{}, err
	}

	s.setState(StateDeciding)
	verdict.Outcome = OutcomeRejected
	if verdict.ObservationCounts[claimed] > 0 {
		verdict.Outcome = OutcomeAccepted
	}
	return verdict, nil
}

// acquire opens the source under its own timeout, independent of the window.
func (s *Session) acquire(ctx context.Context) (frames.Source, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, s.settings.AcquireTimeout)
	defer cancel()

	src, err := s.opener.Open(acquireCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, frames.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", frames.ErrSourceUnavailable, err)
	}
	return src, nil
}

func (s *Session) collect(ctx context.Context, src frames.Source, snap *database.Snapshot, v *Verdict) error {
	s.setState(StateCollecting)

	start := time.Now()
	windowCtx, cancel := context.WithTimeout(ctx, s.settings.Window)
	defer cancel()

	for frame := 0; ; frame++ {
		img, err := src.Next(windowCtx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case windowCtx.Err() != nil:
				v.StopReason = StopWindowElapsed
			case errors.Is(err, io.EOF):
				v.StopReason = StopSourceEnded
			default:
				log.Printf("verification: frame source failed: %v", err)
				v.StopReason = StopSourceFailed
			}
			return nil
		}

		cut, err := s.processFrame(ctx, windowCtx, img, frame, time.Since(start), snap, v)
		if err != nil {
			return err
		}
		if cut || time.Since(start) >= s.settings.Window {
			v.StopReason = StopWindowElapsed
			return nil
		}
	}
}

// processFrame runs detection and matching on one frame. cut is true when
// the window closed during detection; the frame is then not counted.
func (s *Session) processFrame(ctx, windowCtx context.Context, img image.Image, index int, elapsed time.Duration,
	snap *database.Snapshot, v *Verdict) (cut bool, err error) {
	work := imaging.Preprocess(img, s.settings.Mirror, s.settings.Scale)

	faces, err := s.provider.Detect(windowCtx, work)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if windowCtx.Err() != nil {
			return true, nil
		}
		v.FramesProcessed++
		v.FramesFailed++
		s.metrics.ObserveFrame("failed", 0)
		log.Printf("verification: frame %d discarded: %v", index, err)
		s.emit(FrameEvent{Frame: index, Elapsed: elapsed, Faces: []FaceEvent{}, Err: err.Error()})
		return false, nil
	}

	v.FramesProcessed++
	event := FrameEvent{Frame: index, Elapsed: elapsed, Faces: make([]FaceEvent, 0, len(faces))}
	if len(faces) == 0 {
		s.metrics.ObserveFrame("no_face", 0)
		s.emit(event)
		return false, nil
	}
	v.FramesWithFaces++

	frameBounds := image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	for _, f := range faces {
		res, err := s.matcher.MatchSnapshot(f.Embedding, snap)
		if err != nil {
			v.FramesFailed++
			event.Err = err.Error()
			log.Printf("verification: frame %d: %v", index, err)
			break
		}
		s.metrics.ObserveDistance(res.Distance)
		if res.Accepted {
			v.ObservedMatches = append(v.ObservedMatches, res.IdentityKey)
			v.ObservationCounts[res.IdentityKey]++
		}
		box := facematch.ScaleRectToFrame(f.BBox, effectiveScale(s.settings.Scale))
		event.Faces = append(event.Faces, FaceEvent{
			BBox:  facematch.RelativeBBox(box, frameBounds),
			Match: res,
		})
	}

	if event.Err != "" {
		s.metrics.ObserveFrame("failed", len(faces))
	} else {
		s.metrics.ObserveFrame("ok", len(faces))
	}
	s.emit(event)
	return false, nil
}

func effectiveScale(scale float64) float64 {
	if scale <= 0 || scale >= 1 {
		return 1
	}
	return scale
}

func (s *Session) emit(ev FrameEvent) {
	if s.observer != nil {
		s.observer.OnFrame(ev)
	}
}

func (s *Session) closeObserver() {
	s.observerOnce.Do(func() {
		if c, ok := s.observer.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("verification: closing observer: %v", err)
			}
		}
	})
}
