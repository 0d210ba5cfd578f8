package daemon

import (
	"testing"

	"github.com/mygpiod/mygpiod/internal/eventbus"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/timerfd"
)

// TestCancelBlinkReleasesTimerAndRegistration is spec §8 scenario 6
// ("Blink cancel"): cancelling a running blink must close the timer
// descriptor and drop its reactor registration, not just disarm it, or
// every gpioset/gpiotoggle that interrupts a blink leaks an fd.
func TestCancelBlinkReleasesTimerAndRegistration(t *testing.T) {
	m := newModel(eventbus.NewBus())

	timer, err := timerfd.New()
	if err != nil {
		t.Fatalf("timerfd.New: %v", err)
	}

	unregisteredFD := -1
	closedCalls := 0
	m.onBlinkCancel = func(num int, tm *timerfd.Timer) {
		unregisteredFD = tm.FD
		tm.Close()
		closedCalls++
	}

	out := gpio.NewOutputLine(3, gpio.ValueInactive)
	out.BlinkFD = timer.FD
	m.blinkTimers[3] = timer

	m.cancelBlink(out)

	if out.BlinkFD != -1 {
		t.Fatalf("BlinkFD = %d, want -1 after cancel", out.BlinkFD)
	}
	if _, ok := m.blinkTimers[3]; ok {
		t.Fatal("cancelBlink should remove the timer from blinkTimers")
	}
	if unregisteredFD != timer.FD {
		t.Fatalf("onBlinkCancel fd = %d, want %d", unregisteredFD, timer.FD)
	}
	if closedCalls != 1 {
		t.Fatalf("onBlinkCancel called %d times, want 1", closedCalls)
	}
}

// TestCancelBlinkIsNoopWhenNoneArmed confirms cancelling an already-idle
// output line doesn't touch onBlinkCancel at all.
func TestCancelBlinkIsNoopWhenNoneArmed(t *testing.T) {
	m := newModel(eventbus.NewBus())
	called := false
	m.onBlinkCancel = func(int, *timerfd.Timer) { called = true }

	out := gpio.NewOutputLine(5, gpio.ValueInactive)
	m.cancelBlink(out)

	if called {
		t.Fatal("onBlinkCancel should not fire when BlinkFD is already -1")
	}
}
