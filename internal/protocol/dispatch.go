package protocol

import (
	"fmt"
	"strconv"

	"github.com/mygpiod/mygpiod/internal/gpio"
)

// Action tells the caller (component G/I) what session-state transition a
// dispatched command requires, beyond the response bytes themselves. The
// timer/bus wiring those transitions need stays in the daemon package,
// keeping this package free of reactor/session-manager knowledge.
type Action int

const (
	ActionNone Action = iota
	ActionEnterIdle
	ActionExitIdle
	ActionClose
)

// LineSummary is one line's gpiolist entry.
type LineSummary struct {
	Num       int
	Direction gpio.Direction
	Value     gpio.Value
}

// LineInfo is one line's full gpioinfo body.
type LineInfo struct {
	Num       int
	Direction gpio.Direction
	Value     gpio.Value
	Bias      gpio.Bias
	ActiveLow bool
	Drive     gpio.Drive
	Edges     gpio.Edge
}

// Host is the GPIO-model surface the protocol dispatches into. Implemented
// by the daemon package, which owns the live Chip and line records.
type Host interface {
	GPIOList() []LineSummary
	GPIOInfo(num int) (LineInfo, bool)
	GPIOGet(num int) (gpio.Value, bool)
	GPIOSet(num int, v gpio.Value) error
	GPIOToggle(num int) error
	GPIOBlink(num int, timeoutMS, intervalMS int) error
	EmitDebugEvent(num int, kind gpio.EventKind) error
}

// PendingEvent mirrors an eventbus.Event for response formatting.
type PendingEvent struct {
	Line         int
	Kind         gpio.EventKind
	TimestampMS  int64
}

// Result is the outcome of dispatching one command.
type Result struct {
	Response []byte
	Action   Action
}

// Dispatch implements spec §4.H: parse-result in, response bytes and a
// session-action out. idle reports whether the session is currently in
// idle mode (enforcing "while idle, any command other than noidle is an
// error and terminates the session"), and pending is the session's
// currently-queued events, needed by `idle`/`noidle` to decide whether to
// flush immediately.
func Dispatch(cmd Command, idle bool, pending []PendingEvent, host Host) Result {
	if idle && cmd.Name != "noidle" {
		return Result{Response: Error("In idle state, only the noidle command is allowed"), Action: ActionClose}
	}

	switch cmd.Name {
	case "close":
		return Result{Action: ActionClose}

	case "idle":
		if len(pending) > 0 {
			return Result{Response: RenderEvents(pending), Action: ActionNone}
		}
		return Result{Action: ActionEnterIdle}

	case "noidle":
		return Result{Response: RenderEvents(pending), Action: ActionExitIdle}

	case "gpiolist":
		r := OK()
		for _, l := range host.GPIOList() {
			r.Addf("gpio", "%d", l.Num).
				Add("direction", l.Direction.String()).
				Add("value", l.Value.String())
		}
		return Result{Response: r.Bytes()}

	case "gpioinfo":
		n, err := argInt(cmd.Args, 0)
		if err != nil {
			return errResult(err)
		}
		info, ok := host.GPIOInfo(n)
		if !ok {
			return errResult(fmt.Errorf("unknown line %d", n))
		}
		r := OK().
			Addf("gpio", "%d", info.Num).
			Add("direction", info.Direction.String()).
			Add("value", info.Value.String())
		if info.Direction == gpio.DirectionInput {
			r.Add("bias", info.Bias.String()).
				Addf("active_low", "%t", info.ActiveLow).
				Add("event_request", info.Edges.String())
		} else {
			r.Add("drive", info.Drive.String())
		}
		return Result{Response: r.Bytes()}

	case "gpioget":
		n, err := argInt(cmd.Args, 0)
		if err != nil {
			return errResult(err)
		}
		v, ok := host.GPIOGet(n)
		if !ok {
			return errResult(fmt.Errorf("unknown line %d", n))
		}
		return Result{Response: OK().Add("value", v.String()).Bytes()}

	case "gpioset":
		n, err := argInt(cmd.Args, 0)
		if err != nil {
			return errResult(err)
		}
		if len(cmd.Args) < 2 {
			return errResult(fmt.Errorf("gpioset requires a value argument"))
		}
		var v gpio.Value
		switch cmd.Args[1] {
		case "active":
			v = gpio.ValueActive
		case "inactive":
			v = gpio.ValueInactive
		default:
			return errResult(fmt.Errorf("invalid value %q", cmd.Args[1]))
		}
		if err := host.GPIOSet(n, v); err != nil {
			return errResult(err)
		}
		return Result{Response: OK().Bytes()}

	case "gpiotoggle":
		n, err := argInt(cmd.Args, 0)
		if err != nil {
			return errResult(err)
		}
		if err := host.GPIOToggle(n); err != nil {
			return errResult(err)
		}
		return Result{Response: OK().Bytes()}

	case "gpioblink":
		n, err := argInt(cmd.Args, 0)
		if err != nil {
			return errResult(err)
		}
		t, err := argInt(cmd.Args, 1)
		if err != nil {
			return errResult(err)
		}
		i, err := argInt(cmd.Args, 2)
		if err != nil {
			return errResult(err)
		}
		if err := host.GPIOBlink(n, t, i); err != nil {
			return errResult(err)
		}
		return Result{Response: OK().Bytes()}

	case "event":
		n, err := argInt(cmd.Args, 0)
		if err != nil {
			return errResult(err)
		}
		if len(cmd.Args) < 2 {
			return errResult(fmt.Errorf("event requires a kind argument"))
		}
		var kind gpio.EventKind
		switch cmd.Args[1] {
		case "rising":
			kind = gpio.EventRising
		case "falling":
			kind = gpio.EventFalling
		default:
			return errResult(fmt.Errorf("invalid event kind %q", cmd.Args[1]))
		}
		if err := host.EmitDebugEvent(n, kind); err != nil {
			return errResult(err)
		}
		return Result{Response: OK().Bytes()}

	default:
		return Result{Response: Error("Invalid command")}
	}
}

func argInt(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid integer argument %q", args[i])
	}
	return n, nil
}

func errResult(err error) Result {
	return Result{Response: Error(err.Error())}
}

// RenderEvents renders pending as the `OK\ngpio:...\nevent:...\n...\nEND\n`
// body used both by idle/noidle's own reply and by an out-of-band flush of
// an idle session's queue when Bus.Publish fires (spec §4.E).
func RenderEvents(pending []PendingEvent) []byte {
	r := OK()
	for _, e := range pending {
		r.Addf("gpio", "%d", e.Line).
			Add("event", e.Kind.String()).
			Addf("timestamp_ms", "%d", e.TimestampMS)
	}
	return r.Bytes()
}
