package notify

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu            sync.Mutex
	Enrollments   []EnrollmentEvent
	Verifications []VerificationEvent
	Err           error
}

func (r *Recorder) PublishEnrollment(_ context.Context, ev EnrollmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Enrollments = append(r.Enrollments, ev)
	return r.Err
}

func (r *Recorder) PublishVerification(_ context.Context, ev VerificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Verifications = append(r.Verifications, ev)
	return r.Err
}

func (r *Recorder) Close() error { return nil }

// VerificationEvents returns a copy of the recorded verdict events.
func (r *Recorder) VerificationEvents() []VerificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]VerificationEvent(nil), r.Verifications...)
}

// EnrollmentEvents returns a copy of the recorded enrollment events.
func (r *Recorder) EnrollmentEvents() []EnrollmentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EnrollmentEvent(nil), r.Enrollments...)
}
