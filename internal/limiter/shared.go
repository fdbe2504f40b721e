package limiter

import (
	"sync"
	"time"
)

// Shared guards one single-owner limiter with a mutex so many goroutines can
// use it. Each method takes the lock, delegates to the core and releases it,
// so TryAcquire's refresh, check and commit happen in one critical section
// and concurrent callers are linearized in lock order.
//
// Shared exclusively owns its core; hand out the *Shared, never the core.
type Shared[L Limiter] struct {
	mu   sync.Mutex
	core L
}

// NewShared wraps core. The caller must not keep using core directly.
func NewShared[L Limiter](core L) *Shared[L] {
	return &Shared[L]{core: core}
}

func (s *Shared[L]) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.core.Refresh()
}

func (s *Shared[L]) TryAcquire(units uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.TryAcquire(units)
}

func (s *Shared[L]) Limit() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.Limit()
}

func (s *Shared[L]) Remaining() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.Remaining()
}

func (s *Shared[L]) Used() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.Used()
}

func (s *Shared[L]) ResetAt() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ResetAt()
}

// Snapshot reads all counters under one lock acquisition.
func (s *Shared[L]) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(s.core)
}

// Acquire is TryAcquire plus a snapshot of the state it left behind, taken
// without releasing the lock in between. Use it when the remaining count
// must agree with the admission result.
func (s *Shared[L]) Acquire(units uint32) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	allowed := s.core.TryAcquire(units)
	return Decision{
		Allowed:  allowed,
		Units:    units,
		Snapshot: snapshotOf(s.core),
	}
}

// Do runs fn with exclusive access to the core. fn must not retain the core
// or call back into s.
func (s *Shared[L]) Do(fn func(core L)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.core)
}

func snapshotOf(l Limiter) Snapshot {
	return Snapshot{
		Limit:     l.Limit(),
		Remaining: l.Remaining(),
		Used:      l.Used(),
		ResetAt:   l.ResetAt(),
	}
}

type (
	TokenBucketShared          = Shared[*TokenBucket]
	LeakyBucketShared          = Shared[*LeakyBucket]
	FixedWindowShared          = Shared[*FixedWindow]
	SlidingWindowCounterShared = Shared[*SlidingWindowCounter]
	SlidingWindowLogShared     = Shared[*SlidingWindowLog]
)

// NewTokenBucketShared creates a concurrency-safe token bucket.
// refillRate is whole tokens per second.
func NewTokenBucketShared(capacity, refillRate uint32, opts ...Option) *TokenBucketShared {
	return NewShared(NewTokenBucket(capacity, refillRate, opts...))
}

// NewLeakyBucketShared creates a concurrency-safe leaky bucket.
// leakRate is units drained per second.
func NewLeakyBucketShared(capacity uint32, leakRate float64, opts ...Option) *LeakyBucketShared {
	return NewShared(NewLeakyBucket(capacity, leakRate, opts...))
}

// NewFixedWindowShared creates a concurrency-safe fixed window counter.
func NewFixedWindowShared(limit uint32, window time.Duration, opts ...Option) *FixedWindowShared {
	return NewShared(NewFixedWindow(limit, window, opts...))
}

// NewSlidingWindowCounterShared creates a concurrency-safe sliding window counter.
func NewSlidingWindowCounterShared(capacity uint32, window time.Duration, opts ...Option) *SlidingWindowCounterShared {
	return NewShared(NewSlidingWindowCounter(capacity, window, opts...))
}

// NewSlidingWindowLogShared creates a concurrency-safe sliding window log.
// windowSecs is the window length in whole seconds.
func NewSlidingWindowLogShared(capacity uint32, windowSecs uint64, opts ...Option) *SlidingWindowLogShared {
	return NewShared(NewSlidingWindowLog(capacity, windowSecs, opts...))
}
