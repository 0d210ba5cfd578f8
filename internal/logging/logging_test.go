package logging

import "testing"

func TestParseLevelRoundTrip(t *testing.T) {
	cases := map[string]Level{
		"EMERG":  LevelEmerg,
		"alert":  LevelAlert,
		"Crit":   LevelCrit,
		"ERROR":  LevelError,
		"warn":   LevelWarn,
		"notice": LevelNotice,
		"info":   LevelInfo,
		"debug":  LevelDebug,
	}
	for s, want := range cases {
		got, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	if _, err := ParseLevel("bogus"); err == nil {
		t.Fatal("expected an error for an unrecognised loglevel")
	}
}

func TestNewDiscardDoesNotPanic(t *testing.T) {
	log := NewDiscard()
	log.Info().Log("should be dropped silently")
}
