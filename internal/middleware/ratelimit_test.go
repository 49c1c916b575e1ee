package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenBucketAllowsUpToCapacityPerSecond(t *testing.T) {
	tb := &TokenBucket{capacity: 3, tokens: 3}
	for i := 0; i < 3; i++ {
		if !tb.allow() {
			t.Fatalf("request %d should be allowed within capacity", i)
		}
	}
	if tb.allow() {
		t.Fatal("4th request in the same second should be denied")
	}
}

func TestWrapPassesThroughWithoutRateLimitEnv(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200 with no limiting configured, got %d", rr.Code)
	}
}
