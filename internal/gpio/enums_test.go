package gpio

import "testing"

func TestParseBiasRoundTrip(t *testing.T) {
	for _, s := range []string{"as-is", "disabled", "pull-down", "pull-up"} {
		if got := ParseBias(s).String(); got != s {
			t.Errorf("ParseBias(%q).String() = %q", s, got)
		}
	}
}

func TestParseBiasUnknown(t *testing.T) {
	if got := ParseBias("bogus"); got != BiasUnknown {
		t.Fatalf("ParseBias(bogus) = %v, want BiasUnknown", got)
	}
}

func TestParseDriveRoundTrip(t *testing.T) {
	for _, s := range []string{"push-pull", "open-drain", "open-source"} {
		if got := ParseDrive(s).String(); got != s {
			t.Errorf("ParseDrive(%q).String() = %q", s, got)
		}
	}
}

func TestParseEdgeRoundTrip(t *testing.T) {
	for _, s := range []string{"none", "rising", "falling", "both"} {
		if got := ParseEdge(s).String(); got != s {
			t.Errorf("ParseEdge(%q).String() = %q", s, got)
		}
	}
}

func TestEdgeWants(t *testing.T) {
	if !EdgeBoth.Wants(EdgeRising) || !EdgeBoth.Wants(EdgeFalling) {
		t.Fatal("EdgeBoth should want both directions")
	}
	if !EdgeRising.Wants(EdgeRising) || EdgeRising.Wants(EdgeFalling) {
		t.Fatal("EdgeRising should want only rising")
	}
	if EdgeNone.Wants(EdgeRising) || EdgeNone.Wants(EdgeFalling) {
		t.Fatal("EdgeNone should want neither direction")
	}
}

func TestParseModeOnlyInOut(t *testing.T) {
	if d, ok := ParseMode("in"); !ok || d != DirectionInput {
		t.Fatalf("ParseMode(in) = %v, %v", d, ok)
	}
	if d, ok := ParseMode("out"); !ok || d != DirectionOutput {
		t.Fatalf("ParseMode(out) = %v, %v", d, ok)
	}
	if _, ok := ParseMode("inout"); ok {
		t.Fatal("ParseMode should reject anything but in/out")
	}
	if _, ok := ParseMode(""); ok {
		t.Fatal("ParseMode should reject the empty string")
	}
}

func TestParseActionKindRoundTrip(t *testing.T) {
	for _, s := range []string{"system", "gpioset", "gpiotoggle", "gpioblink", "mpc", "http", "mympd", "script"} {
		k, ok := ParseActionKind(s)
		if !ok {
			t.Fatalf("ParseActionKind(%q) not ok", s)
		}
		if got := k.String(); got != s {
			t.Errorf("ParseActionKind(%q).String() = %q", s, got)
		}
	}
}

func TestParseActionKindUnknown(t *testing.T) {
	if _, ok := ParseActionKind("bogus"); ok {
		t.Fatal("expected ParseActionKind to reject an unknown kind")
	}
}

func TestEventKindString(t *testing.T) {
	cases := map[EventKind]string{
		EventFalling:          "falling",
		EventRising:           "rising",
		EventLongPress:        "long_press",
		EventLongPressRelease: "long_press_release",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", k, got, want)
		}
	}
}
