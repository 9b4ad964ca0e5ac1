package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nandhiniannika/online-voting/internal/constants"
)

// sseHeartbeatInterval is a variable so tests can shorten it.
var sseHeartbeatInterval = constants.SSEHeartbeatInterval

// isJobTerminal returns true if the job status is a terminal state
func isJobTerminal(status JobStatus) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// openEventStream resolves the job named by the {id} URL parameter and
// switches the response to text/event-stream. On failure an error response
// has been written and ok is false.
func openEventStream(w http.ResponseWriter, r *http.Request, lookupJob func(string) SSEJob) (job SSEJob, flusher http.Flusher, ok bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing session ID")
		return nil, nil, false
	}
	if job = lookupJob(id); job == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, nil, false
	}
	if flusher, ok = w.(http.Flusher); !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, nil, false
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return job, flusher, true
}

// streamSSEEvents writes the job's current status followed by its events.
// The stream ends when a non-frame event arrives after the job finished, the
// client goes away or the event channel closes. Every heartbeat interval a
// comment line keeps idle proxies from closing the connection; a job found
// finished at that point gets a final status event and the stream ends.
func streamSSEEvents(w http.ResponseWriter, r *http.Request, lookupJob func(string) SSEJob, snapshot func(SSEJob) any) {
	job, flusher, ok := openEventStream(w, r, lookupJob)
	if !ok {
		return
	}

	events := job.AddListener()
	defer job.RemoveListener(events)

	if err := writeSSEEvent(w, flusher, "status", snapshot(job)); err != nil || isJobTerminal(job.GetStatus()) {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if isJobTerminal(job.GetStatus()) {
				_ = writeSSEEvent(w, flusher, "status", snapshot(job))
				return
			}
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeSSEEvent(w, flusher, ev.Type, ev); err != nil {
				return
			}
			if ev.Type != "frame" && isJobTerminal(job.GetStatus()) {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("sse: encoding %s event: %v", name, err)
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
