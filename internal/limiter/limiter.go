package limiter

import (
	"math"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// Algorithm identifies a rate limiting algorithm.
type Algorithm string

const (
	AlgorithmTokenBucket          Algorithm = "token_bucket"
	AlgorithmLeakyBucket          Algorithm = "leaky_bucket"
	AlgorithmFixedWindow          Algorithm = "fixed_window"
	AlgorithmSlidingWindowCounter Algorithm = "sliding_window_counter"
	AlgorithmSlidingWindowLog     Algorithm = "sliding_window_log"
)

// Algorithms returns every supported algorithm in a stable order.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmTokenBucket,
		AlgorithmLeakyBucket,
		AlgorithmFixedWindow,
		AlgorithmSlidingWindowCounter,
		AlgorithmSlidingWindowLog,
	}
}

// Never is the ResetAt value reported when consumed capacity will never
// become available again, e.g. a token bucket with a refill rate of zero.
const Never uint64 = math.MaxUint64

// Limiter is the capability every admission algorithm exposes.
//
// The concrete algorithm types are single-owner: they are not safe for
// concurrent use. Wrap them in a Shared to hand one instance to many
// goroutines; Shared satisfies the same interface.
//
// Getters are plain reads of the committed state. Call Refresh first to
// observe time-dependent changes (refill, leak, window reset, purge).
type Limiter interface {
	// Refresh applies the time-based update. It is idempotent and may be
	// called arbitrarily often.
	Refresh()
	// TryAcquire refreshes, then admits and commits units if capacity allows.
	TryAcquire(units uint32) bool
	// Limit is the immutable capacity.
	Limit() uint32
	// Remaining is the number of units that can currently be admitted.
	Remaining() uint32
	// Used is the number of units currently consumed.
	Used() uint32
	// ResetAt is the Unix time (seconds) at which consumed capacity is
	// expected to return, or Never.
	ResetAt() uint64
}

// Snapshot is a point-in-time view of a limiter's counters.
type Snapshot struct {
	Limit     uint32 `json:"limit"`
	Remaining uint32 `json:"remaining"`
	Used      uint32 `json:"used"`
	ResetAt   uint64 `json:"reset_at"` // Unix seconds, or Never
}

// Decision captures the result of an acquire together with the state it
// produced.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Units   uint32 `json:"units"`
	Snapshot
}

// Snap reads l's counters without refreshing it. A Shared is read under a
// single lock acquisition.
func Snap(l Limiter) Snapshot {
	if s, ok := l.(interface{ Snapshot() Snapshot }); ok {
		return s.Snapshot()
	}
	return snapshotOf(l)
}

// Option configures a limiter at construction time.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// unixSeconds converts t to whole Unix seconds, clamping pre-epoch times to 0.
func unixSeconds(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}

// maxDurationSeconds is the largest span time.Duration can represent.
const maxDurationSeconds = float64(math.MaxInt64 / int64(time.Second))

// resetAfter returns the Unix second of now+seconds, saturating at Never.
func resetAfter(now time.Time, seconds float64) uint64 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return unixSeconds(now)
	}
	if math.IsInf(seconds, 1) {
		return Never
	}
	if seconds < maxDurationSeconds {
		return unixSeconds(now.Add(time.Duration(seconds * float64(time.Second))))
	}
	base := unixSeconds(now)
	if seconds >= float64(Never-base) {
		return Never
	}
	return base + uint64(seconds)
}
