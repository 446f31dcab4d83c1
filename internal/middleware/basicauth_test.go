package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBasicAuth(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	handler := BasicAuth("admin", hash, nil, nil)(okHandler())

	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		want       int
	}{
		{"valid", "admin", "secret", true, http.StatusOK},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "root", "secret", true, http.StatusUnauthorized},
		{"missing", "", "", false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/calendar/events", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 should carry a WWW-Authenticate challenge")
			}
		})
	}
}

func TestBasicAuthDisabled(t *testing.T) {
	handler := BasicAuth("", "", nil, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestBasicAuthLocksOutAfterFailures(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	rl := NewRateLimiter()
	handler := BasicAuth("admin", hash, rl, nil)(okHandler())

	do := func(pass string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		req.SetBasicAuth("admin", pass)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < authFailureLimit; i++ {
		if got := do("wrong"); got != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, got)
		}
	}
	if got := do("secret"); got != http.StatusTooManyRequests {
		t.Errorf("after lockout: status = %d, want 429", got)
	}
}

func TestBasicAuthLockoutIgnoresForwardedHeaders(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	do := func(h http.Handler, i int, pass string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("CF-Connecting-IP", fmt.Sprintf("203.0.113.%d", i))
		req.SetBasicAuth("admin", pass)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := BasicAuth("admin", hash, NewRateLimiter(), ClientIP(false))(okHandler())
	for i := 0; i < authFailureLimit; i++ {
		do(direct, i, "wrong")
	}
	if got := do(direct, 99, "secret"); got != http.StatusTooManyRequests {
		t.Errorf("rotated headers: status = %d, want 429", got)
	}

	proxied := BasicAuth("admin", hash, NewRateLimiter(), ClientIP(true))(okHandler())
	for i := 0; i < authFailureLimit; i++ {
		do(proxied, 1, "wrong")
	}
	if got := do(proxied, 2, "secret"); got != http.StatusOK {
		t.Errorf("behind a trusted proxy another client: status = %d, want 200", got)
	}
	if got := do(proxied, 1, "secret"); got != http.StatusTooManyRequests {
		t.Errorf("behind a trusted proxy the same client: status = %d, want 429", got)
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeObserver struct {
	seen []recordedRequest
}

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.seen = append(f.seen, recordedRequest{method, route, status})
}

func TestInstrumentRecordsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/calendar/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	obs := &fakeObserver{}
	handler := Instrument(obs)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/api/calendar/events/3", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nowhere", nil))

	if len(obs.seen) != 2 {
		t.Fatalf("observed %d requests, want 2", len(obs.seen))
	}
	if got := obs.seen[0]; got.route != "DELETE /api/calendar/events/{id}" || got.status != http.StatusNoContent {
		t.Errorf("first = %+v", got)
	}
	if got := obs.seen[1]; got.route != "" || got.status != http.StatusNotFound {
		t.Errorf("second = %+v", got)
	}
}
