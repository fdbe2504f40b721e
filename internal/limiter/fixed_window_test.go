package limiter

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/throttle/internal/clock"
)

func TestFixedWindow_AcquireAndReset(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := NewFixedWindow(10, 2*time.Second, WithClock(vc))

	if !fw.TryAcquire(5) {
		t.Fatal("first 5 should be admitted")
	}
	if fw.Remaining() != 5 {
		t.Errorf("Remaining = %d, want 5", fw.Remaining())
	}
	if !fw.TryAcquire(5) {
		t.Fatal("second 5 should be admitted")
	}
	if fw.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", fw.Remaining())
	}
	if fw.TryAcquire(1) {
		t.Error("11th unit should be rejected")
	}
	if fw.Remaining() != 0 || fw.Used() != 10 {
		t.Errorf("Remaining/Used = %d/%d, want 0/10", fw.Remaining(), fw.Used())
	}

	vc.Advance(2 * time.Second)
	fw.Refresh()
	if fw.Remaining() != 10 {
		t.Errorf("Remaining after window = %d, want 10", fw.Remaining())
	}
	if fw.Used() != 0 {
		t.Errorf("Used after window = %d, want 0", fw.Used())
	}
}

func TestFixedWindow_NoResetBeforeWindowEnds(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := NewFixedWindow(3, 2*time.Second, WithClock(vc))
	fw.TryAcquire(3)

	vc.Advance(2*time.Second - time.Millisecond)
	if fw.TryAcquire(1) {
		t.Error("should still be denied just before the window ends")
	}

	vc.Advance(time.Millisecond)
	if !fw.TryAcquire(1) {
		t.Error("should be admitted once the window has elapsed")
	}
}

func TestFixedWindow_ResetAt(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := NewFixedWindowSeconds(10, 2, WithClock(vc))

	want := unix(epoch.Add(2 * time.Second))
	if got := fw.ResetAt(); got != want {
		t.Errorf("ResetAt = %d, want %d", got, want)
	}
	fw.TryAcquire(10)
	if got := fw.ResetAt(); got != want {
		t.Errorf("ResetAt after acquire = %d, want %d", got, want)
	}

	vc.Advance(2 * time.Second)
	fw.Refresh()
	if got, want := fw.ResetAt(), unix(epoch.Add(4*time.Second)); got != want {
		t.Errorf("ResetAt after reset = %d, want %d", got, want)
	}
}

func TestFixedWindow_ResetAtStaleUntilRefresh(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := NewFixedWindow(10, 2*time.Second, WithClock(vc))

	vc.Advance(5 * time.Second)
	if got, want := fw.ResetAt(), unix(epoch.Add(2*time.Second)); got != want {
		t.Errorf("ResetAt before refresh = %d, want stale %d", got, want)
	}

	fw.Refresh()
	if got, want := fw.ResetAt(), unix(epoch.Add(7*time.Second)); got != want {
		t.Errorf("ResetAt after refresh = %d, want %d", got, want)
	}
}

func TestFixedWindow_UsedPlusRemainingIsLimit(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := NewFixedWindow(9, time.Second, WithClock(vc))

	for i := 0; i < 40; i++ {
		fw.TryAcquire(uint32(i % 5))
		if fw.Used()+fw.Remaining() != fw.Limit() {
			t.Fatalf("step %d: used %d + remaining %d != limit %d", i, fw.Used(), fw.Remaining(), fw.Limit())
		}
		vc.Advance(170 * time.Millisecond)
	}
}

func TestFixedWindow_ZeroWindowResetsEveryRefresh(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	fw := NewFixedWindow(2, 0, WithClock(vc))

	for i := 0; i < 5; i++ {
		if !fw.TryAcquire(2) {
			t.Fatalf("acquire %d should be admitted with a zero window", i)
		}
	}
	if got := fw.ResetAt(); got != unix(epoch) {
		t.Errorf("ResetAt = %d, want now", got)
	}
}

func TestFixedWindow_ImplementsLimiter(t *testing.T) {
	var _ Limiter = NewFixedWindow(10, time.Second)
}
