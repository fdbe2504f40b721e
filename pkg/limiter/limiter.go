// Package limiter is the public face of the admission-control algorithms.
//
// Each algorithm has a single-owner core (TokenBucket, LeakyBucket,
// FixedWindow, SlidingWindowCounter, SlidingWindowLog) and a shared variant
// that serializes every operation behind a mutex. Both satisfy Limiter.
package limiter

import (
	"time"

	internallimiter "github.com/SmitUplenchwar2687/throttle/internal/limiter"
	"github.com/SmitUplenchwar2687/throttle/pkg/clock"
)

// Algorithm identifies a rate limiting algorithm.
type Algorithm = internallimiter.Algorithm

const (
	AlgorithmTokenBucket          = internallimiter.AlgorithmTokenBucket
	AlgorithmLeakyBucket          = internallimiter.AlgorithmLeakyBucket
	AlgorithmFixedWindow          = internallimiter.AlgorithmFixedWindow
	AlgorithmSlidingWindowCounter = internallimiter.AlgorithmSlidingWindowCounter
	AlgorithmSlidingWindowLog     = internallimiter.AlgorithmSlidingWindowLog
)

// Never is the ResetAt value for capacity that will not come back.
const Never = internallimiter.Never

// ErrUnknownAlgorithm is returned when a Config names no known algorithm.
var ErrUnknownAlgorithm = internallimiter.ErrUnknownAlgorithm

// Limiter is the capability every algorithm exposes.
type Limiter = internallimiter.Limiter

// Snapshot is a point-in-time view of a limiter's counters.
type Snapshot = internallimiter.Snapshot

// Decision captures the result of an acquire.
type Decision = internallimiter.Decision

// Option configures a limiter at construction time.
type Option = internallimiter.Option

// Config holds parameters for creating a limiter.
type Config = internallimiter.Config

type (
	TokenBucket          = internallimiter.TokenBucket
	LeakyBucket          = internallimiter.LeakyBucket
	FixedWindow          = internallimiter.FixedWindow
	SlidingWindowCounter = internallimiter.SlidingWindowCounter
	SlidingWindowLog     = internallimiter.SlidingWindowLog
)

type (
	TokenBucketShared          = internallimiter.TokenBucketShared
	LeakyBucketShared          = internallimiter.LeakyBucketShared
	FixedWindowShared          = internallimiter.FixedWindowShared
	SlidingWindowCounterShared = internallimiter.SlidingWindowCounterShared
	SlidingWindowLogShared     = internallimiter.SlidingWindowLogShared
)

// Shared makes a single-owner limiter safe for concurrent use.
type Shared[L Limiter] = internallimiter.Shared[L]

// Keyed lazily creates one shared limiter per key.
type Keyed = internallimiter.Keyed

// Algorithms returns every supported algorithm.
func Algorithms() []Algorithm { return internallimiter.Algorithms() }

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return internallimiter.WithClock(c)
}

// Snap reads l's counters without refreshing it.
func Snap(l Limiter) Snapshot { return internallimiter.Snap(l) }

// NewShared wraps core behind a mutex.
func NewShared[L Limiter](core L) *Shared[L] { return internallimiter.NewShared(core) }

func NewTokenBucket(capacity, refillRate uint32, opts ...Option) *TokenBucket {
	return internallimiter.NewTokenBucket(capacity, refillRate, opts...)
}

func NewLeakyBucket(capacity uint32, leakRate float64, opts ...Option) *LeakyBucket {
	return internallimiter.NewLeakyBucket(capacity, leakRate, opts...)
}

func NewFixedWindow(limit uint32, window time.Duration, opts ...Option) *FixedWindow {
	return internallimiter.NewFixedWindow(limit, window, opts...)
}

func NewSlidingWindowCounter(capacity uint32, window time.Duration, opts ...Option) *SlidingWindowCounter {
	return internallimiter.NewSlidingWindowCounter(capacity, window, opts...)
}

func NewSlidingWindowLog(capacity uint32, windowSecs uint64, opts ...Option) *SlidingWindowLog {
	return internallimiter.NewSlidingWindowLog(capacity, windowSecs, opts...)
}

func NewTokenBucketShared(capacity, refillRate uint32, opts ...Option) *TokenBucketShared {
	return internallimiter.NewTokenBucketShared(capacity, refillRate, opts...)
}

func NewLeakyBucketShared(capacity uint32, leakRate float64, opts ...Option) *LeakyBucketShared {
	return internallimiter.NewLeakyBucketShared(capacity, leakRate, opts...)
}

func NewFixedWindowShared(limit uint32, window time.Duration, opts ...Option) *FixedWindowShared {
	return internallimiter.NewFixedWindowShared(limit, window, opts...)
}

func NewSlidingWindowCounterShared(capacity uint32, window time.Duration, opts ...Option) *SlidingWindowCounterShared {
	return internallimiter.NewSlidingWindowCounterShared(capacity, window, opts...)
}

func NewSlidingWindowLogShared(capacity uint32, windowSecs uint64, opts ...Option) *SlidingWindowLogShared {
	return internallimiter.NewSlidingWindowLogShared(capacity, windowSecs, opts...)
}

// Build creates the single-owner limiter described by cfg.
func Build(cfg Config, opts ...Option) (Limiter, error) {
	return internallimiter.Build(cfg, opts...)
}

// BuildShared creates the limiter described by cfg behind a Shared lock.
func BuildShared(cfg Config, opts ...Option) (*Shared[Limiter], error) {
	return internallimiter.BuildShared(cfg, opts...)
}

// NewKeyed validates cfg and returns an empty per-key set.
func NewKeyed(cfg Config, opts ...Option) (*Keyed, error) {
	return internallimiter.NewKeyed(cfg, opts...)
}
