package handlers

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	embmock "github.com/nandhiniannika/online-voting/internal/embedding/mock"
	"github.com/nandhiniannika/online-voting/internal/verification"
)

func newSessionsRouter(h *SessionsHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/sessions", h.Start)
	r.Get("/sessions/{id}", h.Status)
	r.Get("/sessions/{id}/events", h.Events)
	r.Delete("/sessions/{id}", h.Cancel)
	return r
}

func startSession(t *testing.T, router http.Handler, body string) SessionJobView {
	t.Helper()
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(body)))
	assertStatusCode(t, recorder, http.StatusAccepted)
	var view SessionJobView
	parseJSONResponse(t, recorder, &view)
	if view.ID == "" {
		t.Fatal("expected session id")
	}
	return view
}

func waitForStatus(t *testing.T, jm *JobManager, id string, want JobStatus) *SessionJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if job := jm.GetJob(id); job != nil && job.GetStatus() == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s did not reach %s", id, want)
	return nil
}

func TestSessionsHandler_StartCompletes(t *testing.T) {
	env := newTestEngine(t, true, embmock.WithEmbeddings(aliceEmb))
	jm := NewJobManager()
	router := newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), jm))

	view := startSession(t, router, `{"identity_key": "alice"}`)
	job := waitForStatus(t, jm, view.ID, JobStatusCompleted)

	got := job.View()
	if got.Verdict == nil || got.Verdict.Outcome != verification.OutcomeAccepted {
		t.Errorf("expected accepted verdict, got %+v", got.Verdict)
	}
	if got.State != verification.StateClosed.String() {
		t.Errorf("expected closed state, got %s", got.State)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/sessions/"+view.ID, nil))
	assertStatusCode(t, recorder, http.StatusOK)
}

func TestSessionsHandler_StartValidation(t *testing.T) {
	env := newTestEngine(t, true)
	router := newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), NewJobManager()))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing key", `{}`},
		{"unknown source", `{"identity_key": "alice", "source": "ftp"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(tc.body)))
			assertStatusCode(t, recorder, http.StatusBadRequest)
		})
	}
}

func TestSessionsHandler_FailedSession(t *testing.T) {
	env := newTestEngine(t, false)
	jm := NewJobManager()
	router := newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), jm))

	view := startSession(t, router, `{"identity_key": "alice"}`)
	job := waitForStatus(t, jm, view.ID, JobStatusFailed)
	if job.View().Error == "" {
		t.Error("expected error message on failed session")
	}
}

func TestSessionsHandler_Cancel(t *testing.T) {
	env := newTestEngine(t, true, embmock.Result{})
	env.opener.Repeat = true
	env.opener.Interval = 10 * time.Millisecond
	env.verifier.Settings.Window = 10 * time.Second
	jm := NewJobManager()
	router := newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), jm))

	view := startSession(t, router, `{"identity_key": "alice"}`)
	waitForStatus(t, jm, view.ID, JobStatusRunning)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/sessions/"+view.ID, nil))
	assertStatusCode(t, recorder, http.StatusOK)

	job := waitForStatus(t, jm, view.ID, JobStatusCancelled)
	deadline := time.Now().Add(3 * time.Second)
	for job.View().CompletedAt == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if job.View().CompletedAt == nil {
		t.Fatal("cancelled session did not finish")
	}
	if srcs := env.opener.Sources(); len(srcs) != 1 || srcs[0].Closes() != 1 {
		t.Error("expected the frame source released exactly once")
	}
}

func TestSessionsHandler_DeleteFinished(t *testing.T) {
	env := newTestEngine(t, true, embmock.WithEmbeddings(aliceEmb))
	jm := NewJobManager()
	router := newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), jm))

	view := startSession(t, router, `{"identity_key": "alice"}`)
	waitForStatus(t, jm, view.ID, JobStatusCompleted)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/sessions/"+view.ID, nil))
	assertStatusCode(t, recorder, http.StatusOK)
	var body map[string]bool
	parseJSONResponse(t, recorder, &body)
	if !body["deleted"] {
		t.Errorf("expected deleted response, got %v", body)
	}
	if jm.GetJob(view.ID) != nil {
		t.Fatal("finished session still listed")
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/sessions/"+view.ID, nil))
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestSessionsHandler_NotFound(t *testing.T) {
	env := newTestEngine(t, true)
	router := newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), NewJobManager()))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/sessions/nope", nil),
		httptest.NewRequest(http.MethodGet, "/sessions/nope/events", nil),
		httptest.NewRequest(http.MethodDelete, "/sessions/nope", nil),
	} {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		assertStatusCode(t, recorder, http.StatusNotFound)
	}
}

func TestSessionsHandler_EventsStream(t *testing.T) {
	env := newTestEngine(t, true, embmock.WithEmbeddings(aliceEmb))
	env.opener.Repeat = true
	env.opener.Interval = 100 * time.Millisecond
	jm := NewJobManager()
	server := httptest.NewServer(newSessionsRouter(NewSessionsHandler(env.verifier, env.openers(), jm)))
	defer server.Close()

	resp, err := http.Post(server.URL+"/sessions", "application/json", strings.NewReader(`{"identity_key": "alice"}`))
	if err != nil {
		t.Fatal(err)
	}
	var view SessionJobView
	if err := decodeJSON(resp, &view); err != nil {
		t.Fatal(err)
	}

	events, err := http.Get(server.URL + "/sessions/" + view.ID + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer events.Body.Close()
	if ct := events.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	var types []string
	scanner := bufio.NewScanner(events.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			types = append(types, name)
		}
	}

	if len(types) == 0 || types[0] != "status" {
		t.Fatalf("expected initial status event, got %v", types)
	}
	if types[len(types)-1] != "completed" {
		t.Errorf("expected stream to end with completed, got %v", types)
	}
	hasFrame := false
	for _, typ := range types {
		if typ == "frame" {
			hasFrame = true
		}
	}
	if !hasFrame {
		t.Errorf("expected a frame event, got %v", types)
	}
}
