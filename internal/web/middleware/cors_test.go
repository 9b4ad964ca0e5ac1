package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS_Origins(t *testing.T) {
	allowed := ParseOrigins("https://kiosk.example.org, ,https://admin.example.org")

	tests := []struct {
		origin string
		want   string
	}{
		{"https://kiosk.example.org", "https://kiosk.example.org"},
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://localhost", "http://localhost"},
		{"http://localhost.evil.com", ""},
		{"https://evil.example.org", ""},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			CORS(allowed)(okHandler()).ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Errorf("expected allow-origin %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/verify", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	CORS(nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || called {
		t.Errorf("preflight should be answered by the middleware, code=%d called=%v", rec.Code, called)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
}
