package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)}
	s := newMemoryStore(time.Hour, clock.Now)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestLoginLimitRejectsFifthAttempt(t *testing.T) {
	store, _ := newTestStore(t)
	l := NewLimiter(store, LoginConfig())
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		d, err := l.Allow(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "attempt %d", i)
		assert.Equal(t, i, d.Count)
	}

	d, err := l.Allow(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, int64(1), l.GetMetrics().TotalHits)
}

func TestWindowResets(t *testing.T) {
	store, clock := newTestStore(t)
	l := NewLimiter(store, Config{Limit: 2, Window: time.Minute, Prefix: "t"})
	ctx := context.Background()

	for range 3 {
		_, _ = l.Allow(ctx, "k")
	}
	clock.Advance(30 * time.Second)
	d, _ := l.Allow(ctx, "k")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	clock.Advance(30 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestKeysAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)
	l := NewLimiter(store, Config{Limit: 1, Window: time.Minute, Prefix: "t"})
	ctx := context.Background()

	d, _ := l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a")
	assert.False(t, d.Allowed)
}

func TestPrefixesShareStore(t *testing.T) {
	store, _ := newTestStore(t)
	login := NewLimiter(store, Config{Limit: 1, Window: time.Minute, Prefix: "login"})
	writes := NewLimiter(store, Config{Limit: 1, Window: time.Minute, Prefix: "writes"})
	ctx := context.Background()

	d, _ := login.Allow(ctx, "x")
	assert.True(t, d.Allowed)
	d, _ = writes.Allow(ctx, "x")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, store.ActiveKeys())
}

func TestCleanupRemovesExpiredWindows(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()
	_, _, _ = store.Incr(ctx, "old", time.Minute)
	clock.Advance(45 * time.Second)
	_, _, _ = store.Incr(ctx, "new", time.Minute)
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, store.cleanupExpired())
	assert.Equal(t, 1, store.ActiveKeys())
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func (failingStore) Close() error { return nil }

func TestStoreFailureAllows(t *testing.T) {
	l := NewLimiter(failingStore{}, LoginConfig())
	d, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestMiddleware(t *testing.T) {
	store, _ := newTestStore(t)
	l := NewLimiter(store, Config{Limit: 2, Window: time.Minute, Prefix: "writes"})
	h := l.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/pots", nil)
		req.RemoteAddr = "203.0.113.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{201, 201, 429}, codes)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", RetryAfterSeconds(0))
	assert.Equal(t, "1", RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "2", RetryAfterSeconds(1500*time.Millisecond))
	assert.Equal(t, "60", RetryAfterSeconds(time.Minute))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_TEST_PASSWORD"))
	require.NoError(t, err)
	store := NewRedisStore(client)
	t.Cleanup(func() { store.Close() })

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(context.Background(), key) })

	count, ttl, err := store.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.LessOrEqual(t, ttl, time.Minute)

	count, _, err = store.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
