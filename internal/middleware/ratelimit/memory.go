package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps fixed-window counters in process memory. Expired windows
// are reset lazily on the next hit and swept by a background goroutine.
type MemoryStore struct {
	mu           sync.Mutex
	windows      map[string]*window
	now          func() time.Time
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type window struct {
	start time.Time
	ttl   time.Duration
	count int
}

func (w *window) expired(now time.Time) bool {
	return now.Sub(w.start) >= w.ttl
}

// NewMemoryStore starts a store that sweeps expired windows every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return newMemoryStore(cleanupInterval, time.Now)
}

func newMemoryStore(cleanupInterval time.Duration, now func() time.Time) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	s := &MemoryStore{
		windows:     make(map[string]*window),
		now:         now,
		stopCleanup: make(chan struct{}),
	}
	go s.startCleanup(cleanupInterval)
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || w.expired(now) {
		w = &window{start: now, ttl: ttl}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.start.Add(w.ttl).Sub(now), nil
}

// startCleanup runs periodic cleanup to remove expired windows
func (s *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, w := range s.windows {
		if w.expired(now) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// ActiveKeys returns the number of currently tracked keys
func (s *MemoryStore) ActiveKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.shutdownOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}
