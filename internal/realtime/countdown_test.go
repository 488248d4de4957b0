package realtime

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	var expirations int32
	c := NewCountdown(3, func() {
		atomic.AddInt32(&expirations, 1)
	}, WithInterval(5*time.Millisecond))

	c.Start()
	// Starting again while running must not spawn a second ticker.
	c.Start()

	deadline := time.After(2 * time.Second)
	for !c.Expired() {
		select {
		case <-deadline:
			t.Fatalf("countdown never expired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	// Give any erroneous second firing a chance to happen.
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Fatalf("expected exactly one expiry, got %d", got)
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected remaining 0, got %d", c.Remaining())
	}
}

func TestCountdownNeverGoesNegative(t *testing.T) {
	var minSeen int32 = 100
	c := NewCountdown(2, nil,
		WithInterval(2*time.Millisecond),
		WithTick(func(remaining int) {
			if int32(remaining) < atomic.LoadInt32(&minSeen) {
				atomic.StoreInt32(&minSeen, int32(remaining))
			}
		}),
	)
	c.Start()

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&minSeen); got != 0 {
		t.Fatalf("expected countdown floor of 0, got %d", got)
	}
	if c.Remaining() < 0 {
		t.Fatalf("remaining went negative: %d", c.Remaining())
	}
}

func TestStopPreventsExpiry(t *testing.T) {
	var expirations int32
	c := NewCountdown(5, func() {
		atomic.AddInt32(&expirations, 1)
	}, WithInterval(5*time.Millisecond))

	c.Start()
	c.Stop()
	c.Stop() // must be safe to call repeatedly

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&expirations); got != 0 {
		t.Fatalf("stopped countdown still expired %d times", got)
	}
}

func TestZeroCountdownExpiresImmediately(t *testing.T) {
	var expirations int32
	c := NewCountdown(0, func() {
		atomic.AddInt32(&expirations, 1)
	})
	c.Start()
	c.Start() // expired countdowns do not restart

	if got := atomic.LoadInt32(&expirations); got != 1 {
		t.Fatalf("expected a single immediate expiry, got %d", got)
	}
}
