package limiter

import (
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// SlidingWindowCounter implements a sliding window over monotonic admission
// timestamps.
//
// Every admitted unit is stamped with the time it was admitted. Before each
// decision, stamps older than the window are purged from the front, and a
// request is admitted only if its units fit alongside the stamps that remain.
// Durations are measured on monotonic readings, so wall-clock steps never
// expire or resurrect entries.
//
// Not safe for concurrent use; see SlidingWindowCounterShared.
type SlidingWindowCounter struct {
	clock    clock.Clock
	capacity uint32
	window   time.Duration
	events   timeline[time.Time]
}

// NewSlidingWindowCounter creates a sliding window counter.
//   - capacity: max units admitted within any window
//   - window: length of the sliding window
func NewSlidingWindowCounter(capacity uint32, window time.Duration, opts ...Option) *SlidingWindowCounter {
	if window < 0 {
		window = 0
	}
	o := buildOptions(opts)
	return &SlidingWindowCounter{
		clock:    o.clock,
		capacity: capacity,
		window:   window,
	}
}

// NewSlidingWindowCounterSeconds creates a sliding window counter with a
// window of windowSecs whole seconds.
func NewSlidingWindowCounterSeconds(capacity uint32, windowSecs uint64, opts ...Option) *SlidingWindowCounter {
	return NewSlidingWindowCounter(capacity, secondsToDuration(windowSecs), opts...)
}

// Refresh purges stamps that have fallen out of the window.
func (sw *SlidingWindowCounter) Refresh() {
	sw.purge(sw.clock.Now())
}

func (sw *SlidingWindowCounter) purge(now time.Time) {
	sw.events.trim(func(at time.Time) bool {
		return now.Sub(at) > sw.window
	})
}

// idle reports whether even the newest stamp has left the window.
func (sw *SlidingWindowCounter) idle() bool {
	last, ok := sw.events.newest()
	return !ok || sw.clock.Since(last) > sw.window
}

func (sw *SlidingWindowCounter) TryAcquire(tokens uint32) bool {
	now := sw.clock.Now()
	sw.purge(now)
	if uint64(sw.events.len())+uint64(tokens) > uint64(sw.capacity) {
		return false
	}
	sw.events.push(now, tokens)
	return true
}

func (sw *SlidingWindowCounter) Limit() uint32 {
	return sw.capacity
}

func (sw *SlidingWindowCounter) Remaining() uint32 {
	if sw.events.len() >= sw.capacity {
		return 0
	}
	return sw.capacity - sw.events.len()
}

func (sw *SlidingWindowCounter) Used() uint32 {
	return sw.events.len()
}

// ResetAt reports when the oldest retained stamp leaves the window. With no
// stamps retained there is nothing pending and the current time is returned.
func (sw *SlidingWindowCounter) ResetAt() uint64 {
	now := sw.clock.Now()
	first, ok := sw.events.oldest()
	if !ok {
		return unixSeconds(now)
	}
	wait := first.Add(sw.window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return unixSeconds(now.Add(wait))
}
