package auth

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/metrics"
)

// counterWindow is how long a client's counter lives after creation. A key
// unseen for the window duration forgets its count: eviction is a property
// of the cache, not foreground logic.
const counterWindow = time.Minute

// maxTrackedClients bounds the counter cache.
const maxTrackedClients = 100_000

// accountedPrefixes are the request paths that count against the limit.
// Everything else always passes.
var accountedPrefixes = []string{
	"/api/auth/",
	"/api/v1/events",
	"/api/v1/tasks",
}

// Limiter enforces a per-client request ceiling over a one-minute window.
// Counters are atomic cells in a TTL cache, so increments on the same key
// never lose updates and distinct keys never contend.
type Limiter struct {
	enabled bool
	limit   int
	logger  *zap.Logger

	mu       sync.Mutex // guards counter creation only
	counters *expirable.LRU[string, *atomic.Int64]
}

// NewLimiter creates a rate limiter. requestsPerMinute <= 0 falls back to 60.
func NewLimiter(enabled bool, requestsPerMinute int, logger *zap.Logger) *Limiter {
	return newLimiter(enabled, requestsPerMinute, counterWindow, logger)
}

func newLimiter(enabled bool, requestsPerMinute int, window time.Duration, logger *zap.Logger) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		enabled:  enabled,
		limit:    requestsPerMinute,
		logger:   logger,
		counters: expirable.NewLRU[string, *atomic.Int64](maxTrackedClients, nil, window),
	}
}

// ShouldBlock accounts one request for the client key and reports whether
// it exceeds the configured threshold. A blocked key keeps counting, so
// sustained abuse never resets to an allowed state.
func (l *Limiter) ShouldBlock(clientKey, path string) bool {
	if !l.enabled || !accountedPath(path) {
		return false
	}
	if l.counters == nil {
		// Counter store unavailable: availability wins over enforcement.
		l.logger.Error("rate limit counter store unavailable, allowing request")
		return false
	}

	if c, ok := l.counters.Get(clientKey); ok {
		return l.bump(c, clientKey)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.counters.Get(clientKey); ok {
		return l.bump(c, clientKey)
	}
	c := &atomic.Int64{}
	c.Store(1)
	l.counters.Add(clientKey, c)
	return false
}

func (l *Limiter) bump(c *atomic.Int64, clientKey string) bool {
	if n := c.Add(1); n > int64(l.limit) {
		l.logger.Warn("rate limit exceeded",
			zap.String("client", clientKey),
			zap.Int64("requests", n),
		)
		return true
	}
	return false
}

func accountedPath(path string) bool {
	for _, p := range accountedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ClientKey derives the rate-accounting key for a request: the first
// X-Forwarded-For entry when present, otherwise the direct peer address.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// rateLimitBody is the structured 429 response.
type rateLimitBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// Middleware wraps next with rate limiting. Blocked requests receive 429
// with a structured body; the protected handler never runs.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.ShouldBlock(ClientKey(r), r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RateLimitedTotal.Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(rateLimitBody{
			Timestamp: time.Now().UTC(),
			Status:    http.StatusTooManyRequests,
			Error:     "Too Many Requests",
			Message:   "Rate limit exceeded. Please try again later.",
			Path:      r.URL.Path,
		})
	})
}
