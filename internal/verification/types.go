// Package verification runs time-bounded verification sessions: frames are
// pulled from a source, faces are matched against a store snapshot and the
// claimed identity is accepted when it was recognised at least once.
package verification

import (
	"errors"
	"time"

	"github.com/nandhiniannika/online-voting/internal/facematch"
)

// ErrSessionAlreadyRun is returned when Run is called a second time.
var ErrSessionAlreadyRun = errors.New("verification session already run")

// State of a session.
type State int32

const (
	StateIdle State = iota
	StateCollecting
	StateDeciding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateDeciding:
		return "deciding"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome of a verification.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// StopReason tells why collection ended.
type StopReason string

const (
	StopWindowElapsed StopReason = "window_elapsed"
	StopSourceEnded   StopReason = "source_ended"
	StopSourceFailed  StopReason = "source_failed"
	StopSingleImage   StopReason = "single_image"
)

// Mode names how a verdict was reached.
const (
	ModeSession = "session"
	ModeImage   = "image"
)

// Verdict is the transient result of one verification.
type Verdict struct {
	ClaimedIdentity   string                 `json:"claimed_identity"`
	Outcome           Outcome                `json:"outcome"`
	ObservedMatches   []string               `json:"observed_matches"`   // accepted keys in observation order
	ObservationCounts map[string]int         `json:"observation_counts"` // per-key count of ObservedMatches
	FramesProcessed   int                    `json:"frames_processed"`
	FramesWithFaces   int                    `json:"frames_with_faces"`
	FramesFailed      int                    `json:"frames_failed"` // provider or matching errors
	Elapsed           time.Duration          `json:"elapsed_ns"`
	StopReason        StopReason             `json:"stop_reason"`
	Match             *facematch.MatchResult `json:"match,omitempty"` // single-image verification only
}

// Accepted reports whether the claimed identity was verified.
func (v Verdict) Accepted() bool {
	return v.Outcome == OutcomeAccepted
}

// FaceEvent is one face found on a frame.
type FaceEvent struct {
	BBox  []float64             `json:"bbox"` // relative [x, y, w, h] on the displayed frame
	Match facematch.MatchResult `json:"match"`
}

// FrameEvent is emitted after each processed frame.
type FrameEvent struct {
	Frame   int           `json:"frame"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Faces   []FaceEvent   `json:"faces"`
	Err     string        `json:"error,omitempty"`
}

// Observer receives frame events in order from the session goroutine.
// If it implements io.Closer it is closed exactly once when the session ends.
type Observer interface {
	OnFrame(FrameEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FrameEvent)

func (f ObserverFunc) OnFrame(ev FrameEvent) { f(ev) }
