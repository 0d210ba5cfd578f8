package config

import (
	"strings"
	"testing"

	"github.com/mygpiod/mygpiod/internal/gpio"
)

func kvFrom(t *testing.T, text string) *rawPairs {
	t.Helper()
	kv, err := parseKV(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parseKV: %v", err)
	}
	return kv
}

func TestParseActionsAppendsEachOccurrence(t *testing.T) {
	kv := kvFrom(t, "action_rising = system:/bin/true\naction_rising = http:http://example/hook\n")

	actions, err := parseActions(kv, "action_rising")
	if err != nil {
		t.Fatalf("parseActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].Kind != gpio.ActionSystem || actions[0].Option != "/bin/true" {
		t.Fatalf("actions[0] = %+v", actions[0])
	}
	if actions[1].Kind != gpio.ActionHTTP || actions[1].Option != "http://example/hook" {
		t.Fatalf("actions[1] = %+v", actions[1])
	}
}

func TestParseActionsRejectsMissingSeparator(t *testing.T) {
	kv := kvFrom(t, "action_rising = systemonly\n")
	if _, err := parseActions(kv, "action_rising"); err == nil {
		t.Fatal("expected an error for a value with no kind:option separator")
	}
}

func TestParseActionsRejectsUnknownKind(t *testing.T) {
	kv := kvFrom(t, "action_rising = frobnicate:x\n")
	if _, err := parseActions(kv, "action_rising"); err == nil {
		t.Fatal("expected an error for an unknown action kind")
	}
}

func TestParseInputDefaults(t *testing.T) {
	kv := kvFrom(t, "")
	in, err := parseInput(7, kv)
	if err != nil {
		t.Fatalf("parseInput: %v", err)
	}
	if in.Num != 7 || in.Bias != gpio.BiasAsIs || in.Edges != gpio.EdgeNone {
		t.Fatalf("in = %+v", in)
	}
	if in.Clock != gpio.ClockMonotonic {
		t.Fatalf("Clock = %v, want ClockMonotonic default", in.Clock)
	}
}

func TestParseInputLongPress(t *testing.T) {
	kv := kvFrom(t, strings.Join([]string{
		"long_press_event = rising",
		"long_press_timeout = 800",
		"long_press_interval = 200",
		"long_press_action = system:/bin/echo pressed",
		"long_press_release_action = system:/bin/echo released",
	}, "\n")+"\n")

	in, err := parseInput(1, kv)
	if err != nil {
		t.Fatalf("parseInput: %v", err)
	}
	if in.LongPress.Edge != gpio.EdgeRising || in.LongPress.TimeoutMS != 800 || in.LongPress.IntervalMS != 200 {
		t.Fatalf("LongPress = %+v", in.LongPress)
	}
	if len(in.LongPress.Action) != 1 || len(in.LongPress.ReleaseAction) != 1 {
		t.Fatalf("LongPress actions = %+v", in.LongPress)
	}
}

func TestParseOutputDefaultsToInactivePushPull(t *testing.T) {
	kv := kvFrom(t, "")
	out, err := parseOutput(4, kv)
	if err != nil {
		t.Fatalf("parseOutput: %v", err)
	}
	if out.Drive != gpio.DrivePushPull || out.Initial != gpio.ValueInactive || out.Level != gpio.ValueInactive {
		t.Fatalf("out = %+v", out)
	}
}

func TestParseOutputRejectsUnknownValue(t *testing.T) {
	kv := kvFrom(t, "value = sideways\n")
	if _, err := parseOutput(4, kv); err == nil {
		t.Fatal("expected an error for an unrecognised output value")
	}
}
