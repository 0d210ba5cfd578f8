package action

import (
	"context"
	"time"

	"github.com/mygpiod/mygpiod/internal/eventbus"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/logging"
	"github.com/mygpiod/mygpiod/internal/timerfd"
)

// Engine owns the runtime edge/long-press/blink state machine described in
// spec §4.D. It is deliberately free of any epoll/reactor knowledge: the
// reactor (component I) calls these methods when it classifies a readable
// descriptor as belonging to one of these three roles.
type Engine struct {
	log  *logging.Logger
	reg  *Registry
	bus  *eventbus.Bus
	now  func() uint64 // nanosecond clock, overridable by tests
}

// NewEngine builds an Engine wired to the given action registry and event
// bus.
func NewEngine(log *logging.Logger, reg *Registry, bus *eventbus.Bus) *Engine {
	return &Engine{
		log: log,
		reg: reg,
		bus: bus,
		now: func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// HandleEdge implements spec §4.D "Edge handling": called by the reactor
// when line's edge-event descriptor is readable.
func (e *Engine) HandleEdge(ctx context.Context, line *gpio.InputLine, longPress *timerfd.Timer) {
	const maxEventsPerCall = 16
	for i := 0; i < maxEventsPerCall; i++ {
		kind, err := gpio.ReadEdge(line.EdgeFD)
		if err != nil {
			return // EAGAIN or a real error; either way nothing more to read
		}

		if longPress != nil {
			if armed, _ := line.LongPressArmed(); armed {
				longPress.Disarm()
				line.LongPressFD = -1
			}
		}

		if line.IgnoreEvent {
			line.IgnoreEvent = false
			continue
		}

		dir := gpio.EdgeFalling
		logicalKind := gpio.EventFalling
		if kind == gpio.EventRising {
			dir = gpio.EdgeRising
			logicalKind = gpio.EventRising
		}

		e.bus.Publish(eventbus.Event{Line: line.Num, Kind: int(logicalKind), TimestampNS: e.now()})

		if line.Edges.Wants(dir) {
			var list []gpio.Action
			if dir == gpio.EdgeRising {
				list = line.OnRising
			} else {
				list = line.OnFalling
			}
			if len(list) > 0 {
				e.reg.Run(ctx, Context{Line: line.Num, Kind: logicalKind, TimestampNS: e.now()}, list)
			}
		}

		if line.LongPress.Edge != gpio.EdgeNone && line.LongPress.Edge == dir &&
			line.LongPress.TimeoutMS > 0 && len(line.LongPress.Action) > 0 && longPress != nil {
			if err := longPress.Set(time.Duration(line.LongPress.TimeoutMS)*time.Millisecond, line.LongPress.IntervalMS > 0); err == nil {
				line.LongPressFD = longPress.FD
				line.MarkLongPressArmed(dir)
			}
		}
	}
}

// HandleLongPress implements spec §4.D "Long-press firing": called by the
// reactor when line's long-press timer descriptor is readable.
func (e *Engine) HandleLongPress(ctx context.Context, line *gpio.InputLine, longPress *timerfd.Timer, currentValue gpio.Value) {
	longPress.Drain()

	armed, dir := line.LongPressArmed()
	if !armed {
		return
	}

	wantActive := dir == gpio.EdgeRising
	atLevel := (currentValue == gpio.ValueActive) == wantActive
	releaseFiredOnce := line.LongPress.IntervalMS > 0

	if atLevel {
		kind := gpio.EventLongPress
		e.bus.Publish(eventbus.Event{Line: line.Num, Kind: int(kind), TimestampNS: e.now()})
		e.reg.Run(ctx, Context{Line: line.Num, Kind: kind, TimestampNS: e.now()}, line.LongPress.Action)

		if line.Edges == gpio.EdgeBoth {
			line.IgnoreEvent = true
		}

		if !releaseFiredOnce {
			longPress.Disarm()
			line.LongPressFD = -1
		}
		return
	}

	// The line has returned to the opposite level: this is the
	// long-press-release firing of an interval-armed timer.
	e.bus.Publish(eventbus.Event{Line: line.Num, Kind: int(gpio.EventLongPressRelease), TimestampNS: e.now()})
	e.reg.Run(ctx, Context{Line: line.Num, Kind: gpio.EventLongPressRelease, TimestampNS: e.now()}, line.LongPress.ReleaseAction)
	longPress.Disarm()
	line.LongPressFD = -1
}

// HandleBlink implements spec §4.D "Output blink": called by the reactor
// when out's blink timer descriptor is readable.
func (e *Engine) HandleBlink(out *gpio.OutputLine, blink *timerfd.Timer, lineFD int, hasInterval bool) {
	blink.Drain()

	next, err := gpio.ToggleValue(lineFD, out.Level)
	if err != nil {
		e.log.Err().Err(err).Log("action: blink toggle failed")
		return
	}
	out.Level = next

	kind := gpio.EventFalling
	if next == gpio.ValueActive {
		kind = gpio.EventRising
	}
	e.bus.Publish(eventbus.Event{Line: out.Num, Kind: int(kind), TimestampNS: e.now()})

	if !hasInterval {
		blink.Disarm()
		out.BlinkFD = -1
	}
}

// CancelBlink implements spec invariant 7: any explicit set-value or
// toggle on an output line cancels its blink timer.
func CancelBlink(out *gpio.OutputLine, blink *timerfd.Timer) {
	if out.BlinkFD == -1 {
		return
	}
	blink.Disarm()
	out.BlinkFD = -1
}
