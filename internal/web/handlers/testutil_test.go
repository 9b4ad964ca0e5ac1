package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nandhiniannika/online-voting/internal/database"
	dbmock "github.com/nandhiniannika/online-voting/internal/database/mock"
	"github.com/nandhiniannika/online-voting/internal/enrollment"
	embmock "github.com/nandhiniannika/online-voting/internal/embedding/mock"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/frames"
	framesmock "github.com/nandhiniannika/online-voting/internal/frames/mock"
	"github.com/nandhiniannika/online-voting/internal/verification"
)

var (
	aliceEmb = []float32{0, 0}
	bobEmb   = []float32{1, 1}
)

// testEngine wires the engine with mock backend, provider and frames.
type testEngine struct {
	store    *database.IdentityStore
	backend  *dbmock.MockBackend
	provider *embmock.MockProvider
	opener   *framesmock.MockOpener
	enroller *enrollment.Enroller
	verifier *verification.Verifier
}

func newTestEngine(t *testing.T, seeded bool, results ...embmock.Result) *testEngine {
	t.Helper()
	backend := dbmock.NewMockBackend()
	if seeded {
		backend.Seed([]string{"alice", "bob"}, [][]float32{aliceEmb, bobEmb})
	}
	store, err := database.Open(context.Background(), backend)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	provider := embmock.NewMockProvider(results...)
	matcher := facematch.NewMatcher(0.5, facematch.StrategyLinear)
	return &testEngine{
		store:    store,
		backend:  backend,
		provider: provider,
		opener:   &framesmock.MockOpener{Frames: []image.Image{testImage()}},
		enroller: &enrollment.Enroller{Store: store, Provider: provider, Matcher: matcher},
		verifier: &verification.Verifier{
			Store:    store,
			Provider: provider,
			Matcher:  matcher,
			Settings: verification.Settings{Window: time.Second, AcquireTimeout: time.Second},
		},
	}
}

// openers returns a factory handing out the engine's mock opener.
func (e *testEngine) openers() OpenerFactory {
	return func(source string) (frames.Opener, error) {
		if source != "" && source != "local" && source != "stream" {
			return nil, errUnknownSourceForTest
		}
		return e.opener, nil
	}
}

var errUnknownSourceForTest = errors.New("unknown frame source")

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

// multipartImageRequest builds a multipart upload with identity_key and a PNG image.
func multipartImageRequest(t *testing.T, path, key string, withImage bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("identity_key", key); err != nil {
		t.Fatal(err)
	}
	if withImage {
		fw, err := mw.CreateFormFile("image", "face.png")
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(fw, testImage()); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses the JSON response body into the target
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
