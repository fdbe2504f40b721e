package limiter

import (
	"math"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The bucket starts full. Tokens are added at refillRate whole units per
// second, up to capacity, and each admitted request removes the units it
// asked for. Refill is floored to whole tokens and lastRefill only moves
// once at least one token has accrued, so fractional progress between
// calls carries over instead of being dropped.
//
// Not safe for concurrent use; see TokenBucketShared.
type TokenBucket struct {
	clock      clock.Clock
	capacity   uint32
	tokens     uint32
	refillRate uint32 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a token bucket limiter.
//   - capacity: maximum tokens the bucket holds (burst size)
//   - refillRate: whole tokens added per second
func NewTokenBucket(capacity, refillRate uint32, opts ...Option) *TokenBucket {
	o := buildOptions(opts)
	return &TokenBucket{
		clock:      o.clock,
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: o.clock.Now(),
	}
}

// Refresh adds the whole tokens accrued since the last refill.
func (tb *TokenBucket) Refresh() {
	now := tb.clock.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 || tb.refillRate == 0 {
		return
	}

	accrued := math.Floor(elapsed * float64(tb.refillRate))
	if accrued < 1 {
		return
	}

	deficit := tb.capacity - tb.tokens
	if accrued >= float64(deficit) {
		tb.tokens = tb.capacity
	} else {
		tb.tokens += uint32(accrued)
	}
	tb.lastRefill = now
}

// idle reports, without changing state, whether the next refresh will
// leave the bucket exactly as a new one built at that moment: the whole
// tokens already accrued must refill it and restamp lastRefill.
func (tb *TokenBucket) idle() bool {
	deficit := tb.capacity - tb.tokens
	if tb.refillRate == 0 {
		return deficit == 0
	}
	elapsed := tb.clock.Since(tb.lastRefill).Seconds()
	accrued := math.Floor(elapsed * float64(tb.refillRate))
	return accrued >= 1 && accrued >= float64(deficit)
}

func (tb *TokenBucket) TryAcquire(tokens uint32) bool {
	tb.Refresh()
	if tb.tokens >= tokens {
		tb.tokens -= tokens
		return true
	}
	return false
}

func (tb *TokenBucket) Limit() uint32 {
	return tb.capacity
}

func (tb *TokenBucket) Remaining() uint32 {
	return tb.tokens
}

func (tb *TokenBucket) Used() uint32 {
	return tb.capacity - tb.tokens
}

// ResetAt reports when the bucket will be full again, not when the next
// token arrives. A bucket that never refills reports Never while it has a
// deficit.
func (tb *TokenBucket) ResetAt() uint64 {
	now := tb.clock.Now()
	deficit := tb.capacity - tb.tokens
	if deficit == 0 {
		return unixSeconds(now)
	}
	if tb.refillRate == 0 {
		return Never
	}
	return resetAfter(now, float64(deficit)/float64(tb.refillRate))
}
