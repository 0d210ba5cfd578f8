package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/gpio"
)

// parseActions reads every occurrence of key and appends each to an
// ordered Action list, per spec §6 ("Action-valued keys may appear
// multiple times; each occurrence appends to the named ordered list").
func parseActions(kv *rawPairs, key string) ([]gpio.Action, error) {
	var out []gpio.Action
	for _, v := range kv.all(key) {
		i := strings.Index(v, ":")
		if i < 0 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration,
				fmt.Sprintf("%s: missing kind:option separator in %q", key, v))
		}
		kindStr, opt := v[:i], v[i+1:]
		kind, ok := gpio.ParseActionKind(kindStr)
		if !ok {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration,
				fmt.Sprintf("%s: unknown action kind %q", key, kindStr))
		}
		out = append(out, gpio.Action{Kind: kind, Option: opt})
	}
	return out, nil
}

func parseInput(num int, kv *rawPairs) (*gpio.InputLine, error) {
	in := gpio.NewInputLine(num)

	if v, ok := kv.last("active_low"); ok {
		b, err := parseBool(v)
		if err != nil {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, "active_low: "+err.Error())
		}
		in.ActiveLow = b
	}

	in.Bias = gpio.BiasAsIs
	if v, ok := kv.last("bias"); ok {
		in.Bias = gpio.ParseBias(v)
		if in.Bias == gpio.BiasUnknown {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("bias: unknown value %q", v))
		}
	}

	in.Edges = gpio.EdgeNone
	if v, ok := kv.last("event_request"); ok {
		in.Edges = gpio.ParseEdge(v)
		if in.Edges == gpio.EdgeUnknown {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("event_request: unknown value %q", v))
		}
	}

	if v, ok := kv.last("debounce"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("debounce: invalid value %q", v))
		}
		in.DebounceUS = n
	}

	in.Clock = gpio.ClockMonotonic
	if v, ok := kv.last("event_clock"); ok {
		in.Clock = gpio.ParseEventClock(v)
		if in.Clock == gpio.ClockUnknown {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("event_clock: unknown value %q", v))
		}
	}

	var err error
	if in.OnFalling, err = parseActions(kv, "action_falling"); err != nil {
		return nil, err
	}
	if in.OnRising, err = parseActions(kv, "action_rising"); err != nil {
		return nil, err
	}

	in.LongPress.Edge = gpio.EdgeNone
	if v, ok := kv.last("long_press_event"); ok {
		in.LongPress.Edge = gpio.ParseEdge(v)
		if in.LongPress.Edge == gpio.EdgeUnknown {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("long_press_event: unknown value %q", v))
		}
	}
	if v, ok := kv.last("long_press_timeout"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("long_press_timeout: invalid value %q", v))
		}
		in.LongPress.TimeoutMS = n
	}
	if v, ok := kv.last("long_press_interval"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("long_press_interval: invalid value %q", v))
		}
		in.LongPress.IntervalMS = n
	}
	if in.LongPress.Action, err = parseActions(kv, "long_press_action"); err != nil {
		return nil, err
	}
	if in.LongPress.ReleaseAction, err = parseActions(kv, "long_press_release_action"); err != nil {
		return nil, err
	}

	return in, nil
}

func parseOutput(num int, kv *rawPairs) (*gpio.OutputLine, error) {
	drive := gpio.DrivePushPull
	if v, ok := kv.last("drive"); ok {
		drive = gpio.ParseDrive(v)
		if drive == gpio.DriveUnknown {
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("drive: unknown value %q", v))
		}
	}

	initial := gpio.ValueInactive
	if v, ok := kv.last("value"); ok {
		switch v {
		case "active":
			initial = gpio.ValueActive
		case "inactive":
			initial = gpio.ValueInactive
		default:
			return nil, errkind.Wrap(errkind.ErrInvalidConfiguration, fmt.Sprintf("value: unknown value %q", v))
		}
	}

	out := gpio.NewOutputLine(num, initial)
	out.Drive = drive
	return out, nil
}
