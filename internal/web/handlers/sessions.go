package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nandhiniannika/online-voting/internal/verification"
)

// SessionsHandler runs verification sessions in the background and streams
// their frame events over SSE.
type SessionsHandler struct {
	verifier   *verification.Verifier
	openers    OpenerFactory
	jobManager *JobManager
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(verifier *verification.Verifier, openers OpenerFactory, jobManager *JobManager) *SessionsHandler {
	return &SessionsHandler{
		verifier:   verifier,
		openers:    openers,
		jobManager: jobManager,
	}
}

// Start handles POST /sessions.
func (h *SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.IdentityKey == "" {
		respondError(w, http.StatusBadRequest, "identity_key is required")
		return
	}

	opener, err := h.openers(req.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.jobManager.CreateJob(uuid.New().String(), req.IdentityKey, req.Source)
	if err != nil {
		if errors.Is(err, ErrTooManySessions) {
			respondError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	sess := h.verifier.NewSession(req.IdentityKey, opener, job)
	job.setSession(sess)

	go h.runJob(ctx, cancel, job, sess)

	respondJSON(w, http.StatusAccepted, job.View())
}

// Status handles GET /sessions/{id}.
func (h *SessionsHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.jobManager.GetJob(chi.URLParam(r, "id"))
	if job == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, job.View())
}

// Events handles GET /sessions/{id}/events.
func (h *SessionsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			if job := h.jobManager.GetJob(id); job != nil {
				return job
			}
			return nil
		},
		func(job SSEJob) any {
			return job.(*SessionJob).View()
		},
	)
}

// Cancel handles DELETE /sessions/{id}. A running session is cancelled; a
// finished one is removed from the manager.
func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job := h.jobManager.GetJob(id)
	if job == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if h.jobManager.DeleteJob(id) {
		respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (h *SessionsHandler) runJob(ctx context.Context, cancel context.CancelFunc, job *SessionJob, sess *verification.Session) {
	defer cancel()

	job.setStatus(JobStatusRunning)
	job.SendEvent(JobEvent{Type: "started", Message: "Verification session started"})

	verdict, err := h.verifier.Run(ctx, sess)
	switch {
	case err == nil:
		job.finish(JobStatusCompleted, &verdict, "")
		job.SendEvent(JobEvent{Type: "completed", Data: verdict})
	case errors.Is(err, context.Canceled):
		job.finish(JobStatusCancelled, nil, err.Error())
	default:
		log.Printf("session %s for %q failed: %v", job.id, sanitizeForLog(job.claimed), err)
		job.finish(JobStatusFailed, nil, err.Error())
		job.SendEvent(JobEvent{Type: "failed", Message: err.Error()})
	}
}
