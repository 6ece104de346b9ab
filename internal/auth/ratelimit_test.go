package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestLimiterThreshold(t *testing.T) {
	l := NewLimiter(true, 60, nil)

	for i := 1; i <= 60; i++ {
		if l.ShouldBlock("10.0.0.5", "/api/v1/events") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if !l.ShouldBlock("10.0.0.5", "/api/v1/events") {
		t.Fatal("request 61 should be blocked")
	}
	// The counter keeps counting while blocked; no reset to allowed.
	if !l.ShouldBlock("10.0.0.5", "/api/v1/events") {
		t.Fatal("request 62 should remain blocked")
	}
}

func TestLimiterIndependentKeys(t *testing.T) {
	l := NewLimiter(true, 2, nil)

	l.ShouldBlock("a", "/api/auth/signin")
	l.ShouldBlock("a", "/api/auth/signin")
	if !l.ShouldBlock("a", "/api/auth/signin") {
		t.Fatal("key a should be blocked")
	}
	if l.ShouldBlock("b", "/api/auth/signin") {
		t.Fatal("key b must not be affected by key a's volume")
	}
}

func TestLimiterUnaccountedPaths(t *testing.T) {
	l := NewLimiter(true, 1, nil)

	for i := 0; i < 10; i++ {
		if l.ShouldBlock("c", "/healthz") {
			t.Fatal("unaccounted path must never block")
		}
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(false, 1, nil)

	for i := 0; i < 10; i++ {
		if l.ShouldBlock("c", "/api/v1/events") {
			t.Fatal("disabled limiter must never block")
		}
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l := newLimiter(true, 1, 50*time.Millisecond, nil)

	if l.ShouldBlock("d", "/api/v1/tasks") {
		t.Fatal("first request allowed")
	}
	if !l.ShouldBlock("d", "/api/v1/tasks") {
		t.Fatal("second request blocked")
	}

	time.Sleep(80 * time.Millisecond) // counter evicted

	if l.ShouldBlock("d", "/api/v1/tasks") {
		t.Fatal("key should start a fresh count after the window elapses")
	}
}

func TestLimiterConcurrentSameKey(t *testing.T) {
	const limit = 100
	l := NewLimiter(true, limit, nil)

	var wg sync.WaitGroup
	blocked := make(chan bool, limit*2)
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocked <- l.ShouldBlock("shared", "/api/v1/events")
		}()
	}
	wg.Wait()
	close(blocked)

	var blockedCount int
	for b := range blocked {
		if b {
			blockedCount++
		}
	}
	// Exactly limit requests pass; no increments lost under interleaving.
	if blockedCount != limit {
		t.Errorf("blocked %d of %d, want exactly %d", blockedCount, limit*2, limit)
	}
}

func TestClientKeyDerivation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.RemoteAddr = "192.168.1.9:51234"

	if got := ClientKey(req); got != "192.168.1.9" {
		t.Errorf("ClientKey = %q, want peer address", got)
	}

	req.Header.Set("X-Forwarded-For", " 10.0.0.5 , 172.16.0.1")
	if got := ClientKey(req); got != "10.0.0.5" {
		t.Errorf("ClientKey = %q, want first forwarded entry", got)
	}
}

func TestMiddlewareBlockResponse(t *testing.T) {
	l := NewLimiter(true, 1, nil)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.RemoteAddr = "10.0.0.5:1000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("blocked response should carry Retry-After")
	}

	var body rateLimitBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != http.StatusTooManyRequests {
		t.Errorf("body.status = %d, want 429", body.Status)
	}
	if body.Error != "Too Many Requests" {
		t.Errorf("body.error = %q", body.Error)
	}
	if body.Path != "/api/v1/events" {
		t.Errorf("body.path = %q", body.Path)
	}
	if body.Timestamp.IsZero() {
		t.Error("body.timestamp should be set")
	}
}
