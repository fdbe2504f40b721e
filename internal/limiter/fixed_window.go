package limiter

import (
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// FixedWindow implements the fixed window counter rate limiting algorithm.
//
// The counter starts at limit and each admitted request decrements it. The
// first refresh at or after lastReset+window restores the full limit and
// restarts the window at that moment: a single hard reset, not a decay.
//
// ResetAt is derived from lastReset, which only moves when a reset fires.
// After an idle period the reported value is stale until Refresh runs.
//
// Not safe for concurrent use; see FixedWindowShared.
type FixedWindow struct {
	clock     clock.Clock
	limit     uint32
	remaining uint32
	window    time.Duration
	lastReset time.Time
}

// NewFixedWindow creates a fixed window limiter.
//   - limit: max units admitted per window
//   - window: duration of each window
func NewFixedWindow(limit uint32, window time.Duration, opts ...Option) *FixedWindow {
	if window < 0 {
		window = 0
	}
	o := buildOptions(opts)
	return &FixedWindow{
		clock:     o.clock,
		limit:     limit,
		remaining: limit,
		window:    window,
		lastReset: o.clock.Now(),
	}
}

// NewFixedWindowSeconds creates a fixed window limiter with a window of
// windowSecs whole seconds.
func NewFixedWindowSeconds(limit uint32, windowSecs uint64, opts ...Option) *FixedWindow {
	return NewFixedWindow(limit, secondsToDuration(windowSecs), opts...)
}

// Refresh resets the counter if the current window has elapsed.
func (fw *FixedWindow) Refresh() {
	now := fw.clock.Now()
	if now.Sub(fw.lastReset) >= fw.window {
		fw.remaining = fw.limit
		fw.lastReset = now
	}
}

// idle reports, without changing state, whether the current window has
// expired. The next refresh then starts a window at that moment, exactly
// like a new counter.
func (fw *FixedWindow) idle() bool {
	return fw.clock.Since(fw.lastReset) >= fw.window
}

func (fw *FixedWindow) TryAcquire(tokens uint32) bool {
	fw.Refresh()
	if fw.remaining >= tokens {
		fw.remaining -= tokens
		return true
	}
	return false
}

func (fw *FixedWindow) Limit() uint32 {
	return fw.limit
}

func (fw *FixedWindow) Remaining() uint32 {
	return fw.remaining
}

func (fw *FixedWindow) Used() uint32 {
	return fw.limit - fw.remaining
}

// ResetAt returns the end of the window that started at the last reset.
func (fw *FixedWindow) ResetAt() uint64 {
	return unixSeconds(fw.lastReset.Add(fw.window))
}

// secondsToDuration converts whole seconds to a Duration, saturating at the
// largest representable value.
func secondsToDuration(secs uint64) time.Duration {
	if secs > uint64(maxDurationSeconds) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(secs) * time.Second
}
