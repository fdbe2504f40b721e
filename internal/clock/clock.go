package clock

import "time"

// Clock abstracts time so limiters work with both real and virtual time.
//
// Readings returned by Now carry a monotonic component when they come from
// the real clock: durations between two readings are computed with Sub and
// are immune to wall-clock steps, while Unix() of the same reading gives the
// externally meaningful wall time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// Sleep blocks (or, for virtual clocks, advances) for d.
	Sleep(d time.Duration)
}

// RealClock delegates to the standard time package.
type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// UnixSeconds returns the wall-clock reading of c in whole seconds since the
// Unix epoch. Readings before the epoch are reported as 0.
func UnixSeconds(c Clock) uint64 {
	s := c.Now().Unix()
	if s < 0 {
		return 0
	}
	return uint64(s)
}
