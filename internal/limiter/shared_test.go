package limiter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

// noDecay builds each algorithm with capacity 10 and no recovery during a test.
func noDecay(vc clock.Clock) map[string]Limiter {
	return map[string]Limiter{
		"token_bucket":           NewTokenBucketShared(10, 0, WithClock(vc)),
		"leaky_bucket":           NewLeakyBucketShared(10, 0, WithClock(vc)),
		"fixed_window":           NewFixedWindowShared(10, time.Hour, WithClock(vc)),
		"sliding_window_counter": NewSlidingWindowCounterShared(10, time.Hour, WithClock(vc)),
		"sliding_window_log":     NewSlidingWindowLogShared(10, 3600, WithClock(vc)),
	}
}

func TestShared_RaceAdmitsExactlyCapacity(t *testing.T) {
	for name, lim := range noDecay(clock.NewVirtualClock(epoch)) {
		t.Run(name, func(t *testing.T) {
			var (
				wg       sync.WaitGroup
				admitted atomic.Int32
				start    = make(chan struct{})
			)
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if lim.TryAcquire(1) {
						admitted.Add(1)
						return
					}
					_ = lim.Remaining()
					_ = lim.Used()
					_ = lim.ResetAt()
				}()
			}
			close(start)
			wg.Wait()

			if got := admitted.Load(); got != 10 {
				t.Errorf("admitted %d requests, want exactly 10", got)
			}
			if lim.Used() != 10 || lim.Remaining() != 0 {
				t.Errorf("Used/Remaining = %d/%d, want 10/0", lim.Used(), lim.Remaining())
			}
		})
	}
}

func TestShared_RecoversAfterWindow(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	lim := NewSlidingWindowLogShared(10, 1, WithClock(vc))

	var wg sync.WaitGroup
	var admitted atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lim.TryAcquire(1) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	if admitted.Load() != 10 {
		t.Fatalf("admitted %d, want 10", admitted.Load())
	}

	vc.Advance(time.Second)
	lim.Refresh()
	again := 0
	for i := 0; i < 10; i++ {
		if lim.TryAcquire(1) {
			again++
		}
	}
	if again != 10 {
		t.Errorf("after window admitted %d, want 10", again)
	}
	if lim.Used() != 10 || lim.Remaining() != 0 {
		t.Errorf("Used/Remaining = %d/%d, want 10/0", lim.Used(), lim.Remaining())
	}
}

func TestShared_AcquireReportsCommittedState(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	lim := NewTokenBucketShared(5, 1, WithClock(vc))

	d := lim.Acquire(3)
	if !d.Allowed || d.Units != 3 {
		t.Fatalf("Acquire(3) = %+v, want allowed", d)
	}
	if d.Limit != 5 || d.Remaining != 2 || d.Used != 3 {
		t.Errorf("snapshot = %+v, want limit 5 remaining 2 used 3", d.Snapshot)
	}
	if want := unix(epoch.Add(3 * time.Second)); d.ResetAt != want {
		t.Errorf("ResetAt = %d, want %d", d.ResetAt, want)
	}

	d = lim.Acquire(3)
	if d.Allowed {
		t.Error("second Acquire(3) should be rejected")
	}
	if d.Remaining != 2 {
		t.Errorf("rejected Acquire changed Remaining to %d", d.Remaining)
	}
}

func TestShared_SnapshotConsistentUnderLoad(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	lim := NewFixedWindowShared(1000, time.Hour, WithClock(vc))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			lim.TryAcquire(1)
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		s := lim.Snapshot()
		if s.Used+s.Remaining != s.Limit {
			t.Fatalf("inconsistent snapshot %+v", s)
		}
	}
}

func TestShared_DoRunsUnderLock(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	lim := NewLeakyBucketShared(10, 1, WithClock(vc))
	lim.TryAcquire(4)

	var level float64
	lim.Do(func(core *LeakyBucket) {
		level = core.Level()
	})
	if level != 4 {
		t.Errorf("Level = %v, want 4", level)
	}
}

func TestSnap(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)

	owned := NewFixedWindow(4, time.Second, WithClock(vc))
	owned.TryAcquire(1)
	if s := Snap(owned); s.Used != 1 || s.Remaining != 3 || s.Limit != 4 {
		t.Errorf("Snap(owned) = %+v", s)
	}

	shared := NewShared[Limiter](NewFixedWindow(4, time.Second, WithClock(vc)))
	shared.TryAcquire(2)
	if s := Snap(shared); s.Used != 2 || s.Remaining != 2 {
		t.Errorf("Snap(shared) = %+v", s)
	}
}

func TestShared_ImplementsLimiter(t *testing.T) {
	var _ Limiter = NewTokenBucketShared(1, 1)
	var _ Limiter = NewLeakyBucketShared(1, 1)
	var _ Limiter = NewFixedWindowShared(1, time.Second)
	var _ Limiter = NewSlidingWindowCounterShared(1, time.Second)
	var _ Limiter = NewSlidingWindowLogShared(1, 1)
}
