package timerfd

import (
	"testing"
	"time"
)

func TestTimerOneShotFiresOnce(t *testing.T) {
	tm, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tm.Close()

	if err := tm.Set(20*time.Millisecond, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if armed, err := tm.Armed(); err != nil || !armed {
		t.Fatalf("Armed() = %v, %v, want true immediately after Set", armed, err)
	}

	time.Sleep(60 * time.Millisecond)
	n, err := tm.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 1 {
		t.Fatalf("Drain() expiry count = %d, want 1 for a one-shot timer", n)
	}

	if armed, err := tm.Armed(); err != nil || armed {
		t.Fatalf("Armed() = %v, %v, want false after a one-shot fires", armed, err)
	}
}

func TestTimerDisarmCancelsPendingExpiry(t *testing.T) {
	tm, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tm.Close()

	if err := tm.Set(time.Hour, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tm.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	if armed, err := tm.Armed(); err != nil || armed {
		t.Fatalf("Armed() = %v, %v, want false after Disarm", armed, err)
	}
}

func TestTimerDrainOnIdleTimerIsZero(t *testing.T) {
	tm, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tm.Close()

	n, err := tm.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 0 {
		t.Fatalf("Drain() on a never-armed timer = %d, want 0", n)
	}
}
