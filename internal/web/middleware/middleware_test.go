package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthenticationDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	Authentication("")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

type recordingObserver struct {
	endpoint string
	status   int
}

func (o *recordingObserver) ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	o.endpoint, o.status = endpoint, status
}

func TestRequestLogging(t *testing.T) {
	obs := &recordingObserver{}
	var seen string
	handler := RequestLogging(obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kpis", nil))

	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request ID %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if obs.status != http.StatusTeapot || obs.endpoint != "/api/kpis" {
		t.Errorf("observed %+v", obs)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate.Limit(1), 1)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("burst of one should allow exactly one request")
	}
	rl.Allow("b")

	now = now.Add(2 * time.Hour)
	rl.Allow("b")
	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if !rl.Allow("a") {
		t.Error("a forgotten client starts with a full bucket")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		fwd    string
		want   string
	}{
		{"192.0.2.1:1234", "", "192.0.2.1"},
		{"192.0.2.1:1234", "203.0.113.5, 10.0.0.1", "203.0.113.5"},
		{"pipe", "", "pipe"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.fwd != "" {
			req.Header.Set("X-Forwarded-For", tt.fwd)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q, %q) = %q, want %q", tt.remote, tt.fwd, got, tt.want)
		}
	}
}
