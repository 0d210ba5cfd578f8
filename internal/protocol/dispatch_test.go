package protocol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mygpiod/mygpiod/internal/gpio"
)

type fakeHost struct {
	lines map[int]LineInfo
	err   error
}

func newFakeHost() *fakeHost {
	return &fakeHost{lines: make(map[int]LineInfo)}
}

func (h *fakeHost) GPIOList() []LineSummary {
	out := make([]LineSummary, 0, len(h.lines))
	for _, l := range h.lines {
		out = append(out, LineSummary{Num: l.Num, Direction: l.Direction, Value: l.Value})
	}
	return out
}

func (h *fakeHost) GPIOInfo(num int) (LineInfo, bool) {
	l, ok := h.lines[num]
	return l, ok
}

func (h *fakeHost) GPIOGet(num int) (gpio.Value, bool) {
	l, ok := h.lines[num]
	return l.Value, ok
}

func (h *fakeHost) GPIOSet(num int, v gpio.Value) error {
	if h.err != nil {
		return h.err
	}
	l := h.lines[num]
	l.Value = v
	h.lines[num] = l
	return nil
}

func (h *fakeHost) GPIOToggle(num int) error {
	if h.err != nil {
		return h.err
	}
	l := h.lines[num]
	if l.Value == gpio.ValueActive {
		l.Value = gpio.ValueInactive
	} else {
		l.Value = gpio.ValueActive
	}
	h.lines[num] = l
	return nil
}

func (h *fakeHost) GPIOBlink(num, timeoutMS, intervalMS int) error { return h.err }

func (h *fakeHost) EmitDebugEvent(num int, kind gpio.EventKind) error { return h.err }

func TestDispatchGpioGetUnknownLine(t *testing.T) {
	host := newFakeHost()
	res := Dispatch(Parse("gpioget 9"), false, nil, host)
	if !strings.HasPrefix(string(res.Response), "ERROR:") {
		t.Fatalf("response = %q, want an ERROR line", res.Response)
	}
}

func TestDispatchGpioSetRoundTrip(t *testing.T) {
	host := newFakeHost()
	host.lines[3] = LineInfo{Num: 3, Direction: gpio.DirectionOutput}

	res := Dispatch(Parse("gpioset 3 active"), false, nil, host)
	if res.Action != ActionNone {
		t.Fatalf("Action = %v", res.Action)
	}
	if string(res.Response) != "OK\nEND\n" {
		t.Fatalf("response = %q", res.Response)
	}

	get := Dispatch(Parse("gpioget 3"), false, nil, host)
	if string(get.Response) != "OK\nvalue:active\nEND\n" {
		t.Fatalf("response = %q", get.Response)
	}
}

func TestDispatchIdleRestrictsCommands(t *testing.T) {
	host := newFakeHost()
	res := Dispatch(Parse("gpiolist"), true, nil, host)
	if res.Action != ActionClose {
		t.Fatalf("Action = %v, want ActionClose", res.Action)
	}
	want := "ERROR:In idle state, only the noidle command is allowed\n"
	if string(res.Response) != want {
		t.Fatalf("response = %q, want %q", res.Response, want)
	}
}

func TestDispatchNoidleWhileIdleIsAllowed(t *testing.T) {
	host := newFakeHost()
	res := Dispatch(Parse("noidle"), true, nil, host)
	if res.Action != ActionExitIdle {
		t.Fatalf("Action = %v, want ActionExitIdle", res.Action)
	}
}

func TestDispatchIdleWithNoPendingEventsEntersIdle(t *testing.T) {
	host := newFakeHost()
	res := Dispatch(Parse("idle"), false, nil, host)
	if res.Action != ActionEnterIdle {
		t.Fatalf("Action = %v, want ActionEnterIdle", res.Action)
	}
}

func TestDispatchIdleWithPendingEventsFlushesImmediately(t *testing.T) {
	host := newFakeHost()
	pending := []PendingEvent{{Line: 1, Kind: gpio.EventRising, TimestampMS: 42}}
	res := Dispatch(Parse("idle"), false, pending, host)
	if res.Action != ActionNone {
		t.Fatalf("Action = %v, want ActionNone (flush without entering idle)", res.Action)
	}
	want := fmt.Sprintf("OK\ngpio:1\nevent:rising\ntimestamp_ms:42\nEND\n")
	if string(res.Response) != want {
		t.Fatalf("response = %q, want %q", res.Response, want)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	host := newFakeHost()
	res := Dispatch(Parse("bogus"), false, nil, host)
	if string(res.Response) != "ERROR:Invalid command\n" {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestDispatchCloseCommand(t *testing.T) {
	host := newFakeHost()
	res := Dispatch(Parse("close"), false, nil, host)
	if res.Action != ActionClose {
		t.Fatalf("Action = %v, want ActionClose", res.Action)
	}
}
