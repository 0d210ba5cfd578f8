package daemon

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mygpiod/mygpiod/internal/action"
	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/eventbus"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/protocol"
	"github.com/mygpiod/mygpiod/internal/timerfd"
)

// model owns every configured GPIO line plus their runtime descriptors; it
// implements protocol.Host (component H's GPIO-facing surface) and backs
// gpioExecutor, the action.Executor for the gpioset/gpiotoggle/gpioblink
// action kinds (component D dispatching back into component C), which is
// why it lives in daemon rather than gpio: splitting it out here, rather
// than into the gpio package itself, avoids gpio depending on
// protocol/action.
type model struct {
	inputs  map[int]*gpio.InputLine
	outputs map[int]*gpio.OutputLine
	// order preserves configuration order for gpiolist (spec §4.H).
	order []lineRef

	bus           *eventbus.Bus
	newBlinkFD    func() (*timerfd.Timer, error)
	blinkTimers   map[int]*timerfd.Timer // keyed by output line number
	onBlinkReady  func(num int, t *timerfd.Timer, hasInterval bool)
	onBlinkCancel func(num int, t *timerfd.Timer)
}

type lineRef struct {
	num      int
	isOutput bool
}

func newModel(bus *eventbus.Bus) *model {
	return &model{
		inputs:      make(map[int]*gpio.InputLine),
		outputs:     make(map[int]*gpio.OutputLine),
		bus:         bus,
		blinkTimers: make(map[int]*timerfd.Timer),
	}
}

func (m *model) GPIOList() []protocol.LineSummary {
	out := make([]protocol.LineSummary, 0, len(m.order))
	for _, ref := range m.order {
		if ref.isOutput {
			o := m.outputs[ref.num]
			out = append(out, protocol.LineSummary{Num: o.Num, Direction: gpio.DirectionOutput, Value: o.Level})
		} else {
			in := m.inputs[ref.num]
			v := gpio.ValueError
			if in.EdgeFD >= 0 {
				if got, err := gpio.GetValue(in.EdgeFD); err == nil {
					v = got
				}
			}
			out = append(out, protocol.LineSummary{Num: in.Num, Direction: gpio.DirectionInput, Value: v})
		}
	}
	return out
}

func (m *model) GPIOInfo(num int) (protocol.LineInfo, bool) {
	if in, ok := m.inputs[num]; ok {
		v := gpio.ValueError
		if in.EdgeFD >= 0 {
			if got, err := gpio.GetValue(in.EdgeFD); err == nil {
				v = got
			}
		}
		return protocol.LineInfo{
			Num: in.Num, Direction: gpio.DirectionInput, Value: v,
			Bias: in.Bias, ActiveLow: in.ActiveLow, Edges: in.Edges,
		}, true
	}
	if o, ok := m.outputs[num]; ok {
		return protocol.LineInfo{
			Num: o.Num, Direction: gpio.DirectionOutput, Value: o.Level, Drive: o.Drive,
		}, true
	}
	return protocol.LineInfo{}, false
}

func (m *model) GPIOGet(num int) (gpio.Value, bool) {
	if in, ok := m.inputs[num]; ok {
		v, err := gpio.GetValue(in.EdgeFD)
		if err != nil {
			return gpio.ValueError, true
		}
		return v, true
	}
	if o, ok := m.outputs[num]; ok {
		return o.Level, true
	}
	return gpio.ValueError, false
}

func (m *model) GPIOSet(num int, v gpio.Value) error {
	o, ok := m.outputs[num]
	if !ok {
		return errkind.Wrap(errkind.ErrInvalidArgument, fmt.Sprintf("line %d is not an output", num))
	}
	m.cancelBlink(o)
	if err := gpio.SetValue(o.LineFD, v); err != nil {
		return err
	}
	o.Level = v
	m.bus.Publish(eventKindEvent(o.Num, v))
	return nil
}

func (m *model) GPIOToggle(num int) error {
	o, ok := m.outputs[num]
	if !ok {
		return errkind.Wrap(errkind.ErrInvalidArgument, fmt.Sprintf("line %d is not an output", num))
	}
	m.cancelBlink(o)
	next, err := gpio.ToggleValue(o.LineFD, o.Level)
	if err != nil {
		return err
	}
	o.Level = next
	m.bus.Publish(eventKindEvent(o.Num, next))
	return nil
}

func (m *model) GPIOBlink(num, timeoutMS, intervalMS int) error {
	o, ok := m.outputs[num]
	if !ok {
		return errkind.Wrap(errkind.ErrInvalidArgument, fmt.Sprintf("line %d is not an output", num))
	}
	m.cancelBlink(o)

	t, err := m.newBlinkFD()
	if err != nil {
		return err
	}
	hasInterval := intervalMS > 0
	period := timeoutMS
	if period <= 0 {
		period = intervalMS
	}
	if period <= 0 {
		return errkind.Wrap(errkind.ErrInvalidArgument, "gpioblink requires a positive timeout or interval")
	}
	if err := t.Set(msDuration(period), hasInterval); err != nil {
		t.Close()
		return err
	}
	o.BlinkFD = t.FD
	m.blinkTimers[num] = t
	if m.onBlinkReady != nil {
		m.onBlinkReady(num, t, hasInterval)
	}
	return nil
}

func (m *model) EmitDebugEvent(num int, kind gpio.EventKind) error {
	if _, okIn := m.inputs[num]; !okIn {
		if _, okOut := m.outputs[num]; !okOut {
			return errkind.Wrap(errkind.ErrInvalidArgument, fmt.Sprintf("unknown line %d", num))
		}
	}
	m.bus.Publish(eventbus.Event{Line: num, Kind: int(kind), TimestampNS: uint64(time.Now().UnixNano())})
	return nil
}

// cancelBlink stops a running blink before gpioset/gpiotoggle/another
// gpioblink takes over the line. It must release the timer descriptor and
// its reactor registration, not just disarm it, or every cancel leaks an
// fd and an epoll entry (spec §8 scenario 6).
func (m *model) cancelBlink(o *gpio.OutputLine) {
	if o.BlinkFD == -1 {
		return
	}
	if t, ok := m.blinkTimers[o.Num]; ok {
		if m.onBlinkCancel != nil {
			m.onBlinkCancel(o.Num, t)
		} else {
			t.Disarm()
			t.Close()
		}
		delete(m.blinkTimers, o.Num)
	}
	o.BlinkFD = -1
}

func eventKindEvent(line int, v gpio.Value) eventbus.Event {
	kind := gpio.EventFalling
	if v == gpio.ValueActive {
		kind = gpio.EventRising
	}
	return eventbus.Event{Line: line, Kind: int(kind), TimestampNS: uint64(time.Now().UnixNano())}
}

// gpioExecutor implements action.Executor for the gpioset/gpiotoggle/
// gpioblink action kinds. The shape of Option alone selects the operation:
// "<line>" toggles, "<line>:active|inactive" sets, and
// "<line>:<timeoutMS>:<intervalMS>" blinks. The action kind is not
// consulted.
type gpioExecutor struct {
	m *model
}

func (g gpioExecutor) Run(ctx context.Context, ec action.Context, option string) error {
	parts := strings.Split(option, ":")
	num, err := strconv.Atoi(parts[0])
	if err != nil {
		return errkind.Wrap(errkind.ErrInvalidArgument, "gpio action: invalid line number "+parts[0])
	}

	switch {
	case len(parts) == 1:
		return g.m.GPIOToggle(num)
	case len(parts) == 2 && (parts[1] == "active" || parts[1] == "inactive"):
		v := gpio.ValueInactive
		if parts[1] == "active" {
			v = gpio.ValueActive
		}
		return g.m.GPIOSet(num, v)
	case len(parts) == 3:
		t, err1 := strconv.Atoi(parts[1])
		i, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			return errkind.Wrap(errkind.ErrInvalidArgument, "gpio action: invalid blink timing in "+option)
		}
		return g.m.GPIOBlink(num, t, i)
	default:
		return errkind.Wrap(errkind.ErrInvalidArgument, "gpio action: unrecognised option "+option)
	}
}
