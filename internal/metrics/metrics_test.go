package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
	"github.com/SmitUplenchwar2687/throttle/internal/limiter"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestInstrument_CountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	vc := clock.NewVirtualClock(epoch)

	lim := c.Instrument("api", limiter.AlgorithmFixedWindow,
		limiter.NewFixedWindowShared(5, time.Minute, limiter.WithClock(vc)))

	assert.True(t, lim.TryAcquire(3))
	assert.True(t, lim.TryAcquire(2))
	assert.False(t, lim.TryAcquire(4))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.acquires.WithLabelValues("api", "fixed_window", "admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("api", "fixed_window", "rejected")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.units.WithLabelValues("api", "fixed_window", "admitted")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.units.WithLabelValues("api", "fixed_window", "rejected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.remaining.WithLabelValues("api", "fixed_window")))
}

func TestInstrument_RefreshUpdatesRemaining(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	vc := clock.NewVirtualClock(epoch)

	lim := c.Instrument("bucket", limiter.AlgorithmTokenBucket,
		limiter.NewTokenBucket(4, 1, limiter.WithClock(vc)))
	require.True(t, lim.TryAcquire(4))

	vc.Advance(2 * time.Second)
	lim.Refresh()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.remaining.WithLabelValues("bucket", "token_bucket")))
	assert.Equal(t, uint32(2), lim.Used())
}

func TestInstrument_PreservesLimiterContract(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	vc := clock.NewVirtualClock(epoch)

	inner := limiter.NewSlidingWindowLog(3, 10, limiter.WithClock(vc))
	lim := c.Instrument("log", limiter.AlgorithmSlidingWindowLog, inner)
	lim.TryAcquire(1)

	assert.Equal(t, uint32(3), lim.Limit())
	assert.Equal(t, uint32(2), lim.Remaining())
	assert.Equal(t, uint64(epoch.Unix()+10), lim.ResetAt())
}

func TestObserve(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	vc := clock.NewVirtualClock(epoch)
	keyed, err := limiter.NewKeyed(limiter.Config{
		Algorithm: limiter.AlgorithmSlidingWindowCounter,
		Capacity:  2,
		Window:    time.Second,
	}, limiter.WithClock(vc))
	require.NoError(t, err)

	for _, key := range []string{"a", "a", "a", "b"} {
		c.Observe("search", limiter.AlgorithmSlidingWindowCounter, keyed.Acquire(key, 1))
	}

	algo := "sliding_window_counter"
	assert.Equal(t, 3.0, testutil.ToFloat64(c.acquires.WithLabelValues("search", algo, "admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("search", algo, "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.remaining.WithLabelValues("search", algo)))
}

func TestNewCollector_RegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.Instrument("x", limiter.AlgorithmLeakyBucket, limiter.NewLeakyBucket(1, 1)).TryAcquire(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"throttle_acquire_total", "throttle_acquire_units_total", "throttle_remaining_units"} {
		assert.True(t, names[want], "missing metric family %s", want)
	}

	assert.Panics(t, func() { NewCollector(reg) }, "registering twice on one registry should panic")
}
