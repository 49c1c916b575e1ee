package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jimspencer/spidermap/internal/logger"
	"github.com/jimspencer/spidermap/pkg/origindefense"
)

// TokenBucket is a per-second token bucket limiter. Simplified: no queueing,
// requests over the per-second budget are dropped with 429 rather than
// delayed.
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := time.Now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wrap applies the origin-defense allow-list, then an optional rate limit,
// to the control-plane job-submission API (§9.6).
func Wrap(next http.Handler) http.Handler {
	od := origindefense.NewFromEnv(logger.L())
	h := od.Wrap(next)
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		qps := 50
		if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
			if n, e := strconv.Atoi(s); e == nil && n > 0 {
				qps = n
			}
		}
		tb := &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix()}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tb.allow() {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
	return h
}
