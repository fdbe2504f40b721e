package limiter

import (
	"math"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// LeakyBucket implements the leaky bucket (as a meter) algorithm.
//
// Admitted units pour water into the bucket, which drains continuously at
// leakRate units per second. A request is admitted only if its units fit
// on top of the current level. Unlike TokenBucket, every leak advances
// lastCheck: fractional drain is applied immediately, never deferred.
//
// Remaining and Used are rounded from the real-valued level, so their sum
// may differ from the capacity by one unit.
//
// Not safe for concurrent use; see LeakyBucketShared.
type LeakyBucket struct {
	clock     clock.Clock
	capacity  uint32
	leakRate  float64 // units per second
	water     float64
	lastCheck time.Time
}

// NewLeakyBucket creates a leaky bucket limiter.
//   - capacity: maximum water level (units)
//   - leakRate: units drained per second; negative or NaN is treated as 0
func NewLeakyBucket(capacity uint32, leakRate float64, opts ...Option) *LeakyBucket {
	if math.IsNaN(leakRate) || leakRate < 0 {
		leakRate = 0
	}
	o := buildOptions(opts)
	return &LeakyBucket{
		clock:     o.clock,
		capacity:  capacity,
		leakRate:  leakRate,
		lastCheck: o.clock.Now(),
	}
}

// Refresh drains the water leaked since the last check.
func (lb *LeakyBucket) Refresh() {
	now := lb.clock.Now()
	elapsed := now.Sub(lb.lastCheck).Seconds()
	if elapsed > 0 {
		lb.water = math.Max(0, lb.water-elapsed*lb.leakRate)
	}
	lb.lastCheck = now
}

// idle reports, without changing state, whether the bucket has fully
// drained by now. Used rounds the level, so it cannot answer this.
func (lb *LeakyBucket) idle() bool {
	if lb.water <= 0 {
		return true
	}
	elapsed := lb.clock.Since(lb.lastCheck).Seconds()
	return elapsed > 0 && lb.water-elapsed*lb.leakRate <= 0
}

func (lb *LeakyBucket) TryAcquire(amount uint32) bool {
	lb.Refresh()
	if lb.water+float64(amount) <= float64(lb.capacity) {
		lb.water += float64(amount)
		return true
	}
	return false
}

func (lb *LeakyBucket) Limit() uint32 {
	return lb.capacity
}

func (lb *LeakyBucket) Remaining() uint32 {
	return roundUnits(float64(lb.capacity)-lb.water, lb.capacity)
}

func (lb *LeakyBucket) Used() uint32 {
	return roundUnits(lb.water, lb.capacity)
}

// ResetAt reports when the bucket will be fully drained.
func (lb *LeakyBucket) ResetAt() uint64 {
	now := lb.clock.Now()
	if lb.water <= 0 {
		return unixSeconds(now)
	}
	if lb.leakRate == 0 {
		return Never
	}
	return resetAfter(now, lb.water/lb.leakRate)
}

// Level returns the current real-valued water level.
func (lb *LeakyBucket) Level() float64 {
	return lb.water
}

// roundUnits rounds v to the nearest unit, clamped to [0, max].
func roundUnits(v float64, max uint32) uint32 {
	r := math.Round(v)
	if r <= 0 {
		return 0
	}
	if r >= float64(max) {
		return max
	}
	return uint32(r)
}
