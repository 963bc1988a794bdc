package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Store counts hits per key in fixed windows. The window of a key starts at
// its first hit and lasts for the window passed with that hit.
type Store interface {
	// Incr records one hit and returns the hit count in the current window
	// and the time left until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetIn time.Duration, err error)
	Close() error
}

// Limiter applies a fixed-window limit on top of a Store.
type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	prefix  string
	metrics *MetricsCollector
	logger  *slog.Logger
}

// Config holds rate limiter configuration
type Config struct {
	// Limit is the number of hits allowed per window; the next hit is rejected.
	Limit  int
	Window time.Duration
	// Prefix namespaces keys so several limiters can share one store.
	Prefix string
	Logger *slog.Logger
}

// DefaultConfig returns the per-client write limit used by the HTTP server.
func DefaultConfig() Config {
	return Config{
		Limit:  60,
		Window: time.Minute,
		Prefix: "writes",
	}
}

// LoginConfig returns the per-identity login attempt limit.
func LoginConfig() Config {
	return Config{
		Limit:  4,
		Window: time.Minute,
		Prefix: "login",
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// NewLimiter creates a new rate limiter
func NewLimiter(store Store, config Config) *Limiter {
	def := DefaultConfig()
	if config.Limit <= 0 {
		config.Limit = def.Limit
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Limiter{
		store:   store,
		limit:   config.Limit,
		window:  config.Window,
		prefix:  config.Prefix,
		metrics: NewMetricsCollector(),
		logger:  config.Logger,
	}
}

// Allow counts a hit for key. Store failures let the request through and are
// returned alongside an allowing decision.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, resetIn, err := l.store.Incr(ctx, l.prefix+":"+key, l.window)
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit}, fmt.Errorf("rate limit store: %w", err)
	}
	d := Decision{Allowed: count <= l.limit, Count: count, Limit: l.limit}
	if !d.Allowed {
		d.RetryAfter = resetIn
		l.metrics.RecordHit()
	}
	return d, nil
}

// Limit returns the configured hits per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// GetMetrics returns current rate limiting metrics
func (l *Limiter) GetMetrics() Metrics {
	if c, ok := l.store.(interface{ ActiveKeys() int }); ok {
		l.metrics.UpdateClientCount(int64(c.ActiveKeys()))
	}
	return l.metrics.GetMetrics()
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// MetricsCollector tracks rate limiting metrics
type MetricsCollector struct {
	totalHits   int64
	clientCount int64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordHit records a rejected request
func (m *MetricsCollector) RecordHit() {
	atomic.AddInt64(&m.totalHits, 1)
}

// UpdateClientCount updates the active client count
func (m *MetricsCollector) UpdateClientCount(count int64) {
	atomic.StoreInt64(&m.clientCount, count)
}

// GetMetrics returns current metrics
func (m *MetricsCollector) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&m.totalHits),
		ClientCount: atomic.LoadInt64(&m.clientCount),
	}
}

// RetryAfterSeconds renders d for the Retry-After header, rounded up and at least 1.
func RetryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Middleware creates HTTP middleware for rate limiting
func (l *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, Decision)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), extractKey(r))
			if err != nil {
				l.logger.WarnContext(r.Context(), "Rate limit check failed, allowing request", "error", err)
			}

			if !d.Allowed {
				w.Header().Set("Retry-After", RetryAfterSeconds(d.RetryAfter))
				if onLimit != nil {
					onLimit(w, r, d)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
