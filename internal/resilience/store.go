package resilience

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FailureStore keeps one consecutive-failure counter per session so that
// sessions never see each other's failures.
type FailureStore interface {
	// RecordFailure increments the session's count and reports whether the
	// threshold was just crossed.
	RecordFailure(ctx context.Context, session string) (bool, error)
	// Reset clears the session's count (new session or successful call).
	Reset(ctx context.Context, session string) error
	// Count returns the session's current count.
	Count(ctx context.Context, session string) (int, error)
}

// DefaultMaxSessions bounds the in-memory store when no size is configured.
const DefaultMaxSessions = 10000

// MemoryStore is a FailureStore backed by a bounded LRU of counters.
// Least recently used sessions are evicted, which is equivalent to a reset.
type MemoryStore struct {
	mu       sync.Mutex
	counters *lru.Cache[string, *FailureCounter]
}

// NewMemoryStore creates a MemoryStore holding at most size sessions.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	c, err := lru.New[string, *FailureCounter](size)
	if err != nil {
		return nil, fmt.Errorf("failure store: %w", err)
	}
	return &MemoryStore{counters: c}, nil
}

// counter returns the session's counter, creating it if needed. The caller
// must hold s.mu.
func (s *MemoryStore) counter(session string) *FailureCounter {
	if c, ok := s.counters.Get(session); ok {
		return c
	}
	c := &FailureCounter{}
	s.counters.Add(session, c)
	return c
}

// RecordFailure implements FailureStore. The lookup and the increment happen
// under one lock so a concurrent Reset cannot drop the increment.
func (s *MemoryStore) RecordFailure(_ context.Context, session string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter(session).RecordFailure(), nil
}

// Reset implements FailureStore.
func (s *MemoryStore) Reset(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Remove(session)
	return nil
}

// Count implements FailureStore.
func (s *MemoryStore) Count(_ context.Context, session string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters.Peek(session); ok {
		return c.Count(), nil
	}
	return 0, nil
}

// Len returns the number of tracked sessions.
func (s *MemoryStore) Len() int {
	return s.counters.Len()
}
