package limiter

import (
	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// SlidingWindowLog implements a sliding window log over wall-clock seconds.
//
// The log keeps the epoch second of every admitted unit. Entries whose age
// reaches windowSecs are dropped before each decision. Because stamps are
// already wall-clock values, ResetAt is simply the oldest stamp plus the
// window.
//
// Not safe for concurrent use; see SlidingWindowLogShared.
type SlidingWindowLog struct {
	clock      clock.Clock
	capacity   uint32
	windowSecs uint64
	log        timeline[uint64]
}

// NewSlidingWindowLog creates a sliding window log.
//   - capacity: max units admitted within any window
//   - windowSecs: window length in whole seconds
func NewSlidingWindowLog(capacity uint32, windowSecs uint64, opts ...Option) *SlidingWindowLog {
	o := buildOptions(opts)
	return &SlidingWindowLog{
		clock:      o.clock,
		capacity:   capacity,
		windowSecs: windowSecs,
	}
}

// Refresh drops log entries that have aged out of the window.
func (sl *SlidingWindowLog) Refresh() {
	sl.cleanup(clock.UnixSeconds(sl.clock))
}

func (sl *SlidingWindowLog) cleanup(now uint64) {
	sl.log.trim(func(ts uint64) bool {
		// A stamp ahead of the wall clock is never stale.
		return now >= ts && now-ts >= sl.windowSecs
	})
}

// idle reports whether even the newest entry has aged out.
func (sl *SlidingWindowLog) idle() bool {
	last, ok := sl.log.newest()
	if !ok {
		return true
	}
	now := clock.UnixSeconds(sl.clock)
	return now >= last && now-last >= sl.windowSecs
}

// TryAcquire admits units if they fit in the window. A single unit is
// checked against the log length directly; larger requests check the sum.
// Both paths make the same decision for the same occupancy.
func (sl *SlidingWindowLog) TryAcquire(tokens uint32) bool {
	now := clock.UnixSeconds(sl.clock)
	sl.cleanup(now)

	if tokens != 1 {
		if uint64(sl.log.len())+uint64(tokens) > uint64(sl.capacity) {
			return false
		}
		sl.log.push(now, tokens)
		return true
	}

	if sl.log.len() < sl.capacity {
		sl.log.push(now, 1)
		return true
	}
	return false
}

func (sl *SlidingWindowLog) Limit() uint32 {
	return sl.capacity
}

func (sl *SlidingWindowLog) Remaining() uint32 {
	if sl.log.len() >= sl.capacity {
		return 0
	}
	return sl.capacity - sl.log.len()
}

func (sl *SlidingWindowLog) Used() uint32 {
	return sl.log.len()
}

func (sl *SlidingWindowLog) ResetAt() uint64 {
	oldest, ok := sl.log.oldest()
	if !ok {
		return clock.UnixSeconds(sl.clock)
	}
	if oldest > Never-sl.windowSecs {
		return Never
	}
	return oldest + sl.windowSecs
}
