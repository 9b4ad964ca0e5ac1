// Package notify publishes enrollment and verification events to subscribers
// such as a voter-list service.
package notify

import (
	"context"
	"time"
)

// EnrollmentEvent is published after a record was appended to the store.
type EnrollmentEvent struct {
	IdentityKey         string    `json:"identity_key"`
	Records             int       `json:"records"` // store size after the append
	FacesDetected       int       `json:"faces_detected"`
	PossibleDuplicateOf string    `json:"possible_duplicate_of,omitempty"`
	Time                time.Time `json:"time"`
}

// VerificationEvent is published for every verdict.
type VerificationEvent struct {
	ClaimedIdentity string    `json:"claimed_identity"`
	Outcome         string    `json:"outcome"`
	Mode            string    `json:"mode"` // session or image
	ObservedMatches []string  `json:"observed_matches"`
	ElapsedMs       int64     `json:"elapsed_ms"`
	Time            time.Time `json:"time"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishEnrollment(ctx context.Context, ev EnrollmentEvent) error
	PublishVerification(ctx context.Context, ev VerificationEvent) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishEnrollment(context.Context, EnrollmentEvent) error     { return nil }
func (Noop) PublishVerification(context.Context, VerificationEvent) error { return nil }
func (Noop) Close() error                                                 { return nil }
