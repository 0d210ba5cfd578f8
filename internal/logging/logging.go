// Package logging wires the daemon's structured logger. It builds a
// logiface.Logger[*stumpy.Event] writing to stderr, optionally teeing every
// record to the local syslog daemon, matching the `syslog = true/false`
// config key.
package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Level mirrors the eight syslog severities recognised by the `loglevel`
// config key, in the exact spelling the config file uses.
type Level int

const (
	LevelEmerg Level = iota
	LevelAlert
	LevelCrit
	LevelError
	LevelWarn
	LevelNotice
	LevelInfo
	LevelDebug
)

// ParseLevel parses the `loglevel` config value. Unrecognised tokens return
// an error; callers in internal/config turn that into ErrInvalidConfiguration.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EMERG":
		return LevelEmerg, nil
	case "ALERT":
		return LevelAlert, nil
	case "CRIT":
		return LevelCrit, nil
	case "ERROR":
		return LevelError, nil
	case "WARN":
		return LevelWarn, nil
	case "NOTICE":
		return LevelNotice, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown loglevel %q", s)
	}
}

func (l Level) logifaceLevel() logiface.Level {
	switch l {
	case LevelEmerg:
		return logiface.LevelEmergency
	case LevelAlert:
		return logiface.LevelAlert
	case LevelCrit:
		return logiface.LevelCritical
	case LevelError:
		return logiface.LevelError
	case LevelWarn:
		return logiface.LevelWarning
	case LevelNotice:
		return logiface.LevelNotice
	case LevelInfo:
		return logiface.LevelInformational
	default:
		return logiface.LevelDebug
	}
}

// Logger is the daemon-wide structured logger handle. Every component takes
// one of these rather than reaching for a package-level global.
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

// syslogWriter adapts a *syslog.Writer to io.Writer, mapping the stumpy
// text-line encoding onto syslog's own severity via a fixed priority: the
// daemon's own loglevel filter has already gated what reaches this writer,
// so every line is written at the configured base priority.
type syslogWriter struct {
	w *syslog.Writer
}

func (s syslogWriter) Write(p []byte) (int, error) {
	if err := s.w.Info(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// New builds a Logger writing structured lines to stderr at level,
// additionally tee'd to the local syslog socket under the "mygpiod" tag when
// withSyslog is true.
func New(level Level, withSyslog bool) (*Logger, error) {
	var w io.Writer = os.Stderr
	if withSyslog {
		sw, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "mygpiod")
		if err != nil {
			return nil, fmt.Errorf("logging: connect syslog: %w", err)
		}
		w = io.MultiWriter(os.Stderr, syslogWriter{w: sw})
	}

	logger := stumpy.L.New(
		stumpy.WithStumpy(stumpy.WithWriter(w)),
		logiface.WithLevel[*stumpy.Event](level.logifaceLevel()),
	)
	return &Logger{l: logger}, nil
}

// NewDiscard builds a Logger that drops every record; used by tests that
// don't care about log output.
func NewDiscard() *Logger {
	logger := stumpy.L.New(
		stumpy.WithStumpy(stumpy.WithWriter(io.Discard)),
		logiface.WithLevel[*stumpy.Event](logiface.LevelDisabled),
	)
	return &Logger{l: logger}
}

func (lg *Logger) Emerg() *logiface.Builder[*stumpy.Event]  { return lg.l.Emerg() }
func (lg *Logger) Alert() *logiface.Builder[*stumpy.Event]  { return lg.l.Alert() }
func (lg *Logger) Crit() *logiface.Builder[*stumpy.Event]   { return lg.l.Crit() }
func (lg *Logger) Err() *logiface.Builder[*stumpy.Event]    { return lg.l.Err() }
func (lg *Logger) Warning() *logiface.Builder[*stumpy.Event] { return lg.l.Warning() }
func (lg *Logger) Notice() *logiface.Builder[*stumpy.Event] { return lg.l.Notice() }
func (lg *Logger) Info() *logiface.Builder[*stumpy.Event]   { return lg.l.Info() }
func (lg *Logger) Debug() *logiface.Builder[*stumpy.Event]  { return lg.l.Debug() }
