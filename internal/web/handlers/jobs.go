package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nandhiniannika/online-voting/internal/constants"
	"github.com/nandhiniannika/online-voting/internal/verification"
)

// ErrTooManySessions is returned when the concurrent session limit is reached.
var ErrTooManySessions = errors.New("too many active verification sessions")

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// SessionJob is an asynchronous verification session.
type SessionJob struct {
	EventBroadcaster

	id          string
	claimed     string
	source      string
	status      JobStatus
	framesSeen  int
	startedAt   time.Time
	completedAt *time.Time
	verdict     *verification.Verdict
	err         string

	session *verification.Session
}

// SessionJobView is the JSON representation of a job.
type SessionJobView struct {
	ID              string                `json:"id"`
	ClaimedIdentity string                `json:"claimed_identity"`
	Source          string                `json:"source,omitempty"`
	Status          JobStatus             `json:"status"`
	State           string                `json:"state"`
	FramesSeen      int                   `json:"frames_seen"`
	StartedAt       time.Time             `json:"started_at"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
	Verdict         *verification.Verdict `json:"verdict,omitempty"`
	Error           string                `json:"error,omitempty"`
}

// View returns a consistent copy of the job for encoding.
func (j *SessionJob) View() SessionJobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v := SessionJobView{
		ID:              j.id,
		ClaimedIdentity: j.claimed,
		Source:          j.source,
		Status:          j.status,
		State:           verification.StateIdle.String(),
		FramesSeen:      j.framesSeen,
		StartedAt:       j.startedAt,
		CompletedAt:     j.completedAt,
		Verdict:         j.verdict,
		Error:           j.err,
	}
	if j.session != nil {
		v.State = j.session.State().String()
	}
	return v
}

// GetStatus returns the current job status (implements SSEJob).
func (j *SessionJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *SessionJob) setSession(sess *verification.Session) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.session = sess
}

func (j *SessionJob) setStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
}

// finish records the terminal state unless the job was already cancelled.
func (j *SessionJob) finish(status JobStatus, verdict *verification.Verdict, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.completedAt = &now
	j.verdict = verdict
	j.err = errMsg
	if j.status != JobStatusCancelled {
		j.status = status
	}
}

// OnFrame forwards session frame events to listeners.
func (j *SessionJob) OnFrame(ev verification.FrameEvent) {
	j.mu.Lock()
	j.framesSeen++
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "frame", Data: ev})
}

// Cancel cancels the session.
func (j *SessionJob) Cancel() {
	j.mu.Lock()
	if !isJobTerminal(j.status) {
		j.status = JobStatusCancelled
	}
	j.mu.Unlock()
	j.EventBroadcaster.Cancel()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// isTerminalEvent reports whether an event type ends a session stream.
func isTerminalEvent(eventType string) bool {
	switch eventType {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// SendEvent sends an event to all listeners. A listener with a full buffer
// misses frame events, but waits up to TerminalEventTimeout for a terminal one.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var deadline <-chan struct{}
	for _, listener := range b.listeners {
		select {
		case listener <- event:
			continue
		default:
		}
		if !isTerminalEvent(event.Type) {
			continue
		}
		if deadline == nil {
			ctx, cancel := context.WithTimeout(context.Background(), constants.TerminalEventTimeout)
			defer cancel()
			deadline = ctx.Done()
		}
		select {
		case listener <- event:
		case <-deadline:
		}
	}
}

func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = cancel
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Session cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async verification sessions.
type JobManager struct {
	jobs      map[string]*SessionJob
	mu        sync.RWMutex
	maxActive int
	ttl       time.Duration
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*SessionJob),
		maxActive: constants.MaxConcurrentSessions,
		ttl:       constants.FinishedSessionTTL,
	}
}

// CreateJob registers a new pending job. Finished jobs older than the TTL are
// dropped first; ErrTooManySessions is returned at the active limit.
func (m *JobManager) CreateJob(id, claimed, source string) (*SessionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for jid, job := range m.jobs {
		view := job.View()
		if !isJobTerminal(view.Status) {
			active++
			continue
		}
		if view.CompletedAt != nil && time.Since(*view.CompletedAt) > m.ttl {
			delete(m.jobs, jid)
		}
	}
	if active >= m.maxActive {
		return nil, ErrTooManySessions
	}

	job := &SessionJob{
		id:        id,
		claimed:   claimed,
		source:    source,
		status:    JobStatusPending,
		startedAt: time.Now(),
	}
	m.jobs[id] = job
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *SessionJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a finished job. It reports false for unknown or running jobs.
func (m *JobManager) DeleteJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || !isJobTerminal(job.GetStatus()) {
		return false
	}
	delete(m.jobs, id)
	return true
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*SessionJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*SessionJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelAll cancels every running job. Used on shutdown.
func (m *JobManager) CancelAll() {
	for _, job := range m.ListJobs() {
		if !isJobTerminal(job.GetStatus()) {
			job.Cancel()
		}
	}
}
