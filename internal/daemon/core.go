// Package daemon wires components A through I into one running process:
// spec §2's "these three sub-systems are tightly coupled through shared
// descriptor ownership and the fan-out queue; they are specified together
// as one core." Everything that needs to reach across component
// boundaries (the reactor registering a GPIO fd, a session command
// reaching into the GPIO model) is resolved here rather than by
// introducing import cycles between the leaf packages.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mygpiod/mygpiod/internal/action"
	"github.com/mygpiod/mygpiod/internal/config"
	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/eventbus"
	"github.com/mygpiod/mygpiod/internal/gpio"
	"github.com/mygpiod/mygpiod/internal/logging"
	"github.com/mygpiod/mygpiod/internal/protocol"
	"github.com/mygpiod/mygpiod/internal/reactor"
	"github.com/mygpiod/mygpiod/internal/session"
	"github.com/mygpiod/mygpiod/internal/timerfd"
	"github.com/mygpiod/mygpiod/internal/version"
)

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Daemon is the fully wired running process.
type Daemon struct {
	cfg *config.Config
	log *logging.Logger

	chip *gpio.Chip
	loop *reactor.Loop

	bus     *eventbus.Bus
	actions *action.Registry
	engine  *action.Engine
	model   *model

	listener *session.Listener
	sessions *session.Manager
	timeouts map[int]*timerfd.Timer // keyed by session ID

	longPress map[int]*timerfd.Timer // keyed by input line number

	sigFile *os.File
}

// New loads cfg's configuration and wires every component together,
// without starting the reactor loop yet.
func New(configPath string) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Syslog)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:       cfg,
		log:       log,
		bus:       eventbus.NewBus(),
		sessions:  session.NewManager(),
		timeouts:  make(map[int]*timerfd.Timer),
		longPress: make(map[int]*timerfd.Timer),
	}
	d.model = newModel(d.bus)
	d.model.newBlinkFD = timerfd.New
	d.model.onBlinkReady = d.onBlinkArmed
	d.model.onBlinkCancel = d.cancelBlinkTimer

	d.actions = action.NewRegistry(log, "", "", nil)
	d.actions.RegisterGPIO(gpioExecutor{m: d.model})
	d.engine = action.NewEngine(log, d.actions, d.bus)

	chip, err := gpio.OpenChip(cfg.Chip)
	if err != nil {
		return nil, err
	}
	d.chip = chip

	for _, in := range cfg.Inputs {
		if err := chip.RequestInput(in); err != nil {
			return nil, err
		}
		d.model.inputs[in.Num] = in
		d.model.order = append(d.model.order, lineRef{num: in.Num})
	}
	for _, out := range cfg.Outputs {
		if err := chip.RequestOutput(out); err != nil {
			return nil, err
		}
		d.model.outputs[out.Num] = out
		d.model.order = append(d.model.order, lineRef{num: out.Num, isOutput: true})
	}

	listener, err := session.NewListener(cfg.Socket)
	if err != nil {
		return nil, err
	}
	d.listener = listener

	loop, err := reactor.New(log)
	if err != nil {
		return nil, err
	}
	d.loop = loop

	return d, nil
}

// Run builds the initial poll set (spec §4.I step 2) and blocks in the
// reactor loop until a shutdown signal arrives.
func (d *Daemon) Run() error {
	if err := d.installSignalHandling(); err != nil {
		return err
	}
	if err := d.loop.Register(int(d.sigFile.Fd()), reactor.RoleSignal, 0, reactor.EventRead, d.handleSignal); err != nil {
		return err
	}
	if err := d.loop.Register(d.listener.FD, reactor.RoleListener, 0, reactor.EventRead, d.handleAccept); err != nil {
		return err
	}
	for num, in := range d.model.inputs {
		if in.EdgeFD < 0 {
			continue
		}
		line := in
		if err := d.loop.Register(line.EdgeFD, reactor.RoleGPIOEdge, num, reactor.EventRead, func(reactor.IOEvents) {
			d.handleEdge(line)
		}); err != nil {
			return err
		}
	}

	d.log.Notice().Str("version", version.String()).Log("mygpiod starting")
	err := d.loop.Run()
	d.shutdown()
	return err
}

// installSignalHandling sets up a self-pipe: os/signal already multiplexes
// every supported platform's native signal delivery onto a Go channel, so
// the reactor's own descriptor is the read end of a pipe a small goroutine
// writes to (and then closes) when the first signal is notified. This keeps the reactor's "everything
// is a descriptor" discipline (spec §4.I step 1, "obtain a signal
// descriptor") without the architecture-specific sigset_t layout that a
// direct signalfd(2) syscall would need.
func (d *Daemon) installSignalHandling() error {
	r, w, err := os.Pipe()
	if err != nil {
		return errkind.Wrapf(errkind.ErrFatal, "signal pipe", err)
	}
	d.sigFile = r

	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-ch
		w.Write([]byte{1})
		w.Close()
	}()
	return nil
}

func (d *Daemon) handleSignal(reactor.IOEvents) {
	d.log.Notice().Log("signal received, shutting down")
	d.loop.Stop()
}

func (d *Daemon) handleAccept(reactor.IOEvents) {
	for {
		fd, _, err := d.listener.Accept()
		if err != nil {
			d.log.Err().Err(err).Log("accept failed")
			return
		}
		if fd < 0 {
			return
		}
		welcome := fmt.Sprintf("OK\nversion:%s\nEND\n", version.String())
		sess := d.sessions.Accept(fd, []byte(welcome))
		if sess == nil {
			continue // MAX_CLIENTS reached; Accept already closed fd
		}
		if err := d.loop.Register(fd, reactor.RoleSession, sess.ID, reactor.EventWrite, func(ev reactor.IOEvents) {
			d.handleSessionIO(sess, ev)
		}); err != nil {
			d.log.Err().Err(err).Log("register session fd failed")
			continue
		}
		d.armSessionTimeout(sess)
	}
}

func (d *Daemon) armSessionTimeout(s *session.Session) {
	t, err := timerfd.New()
	if err != nil {
		d.log.Err().Err(err).Log("create session timeout timer failed")
		return
	}
	t.Set(time.Duration(d.cfg.IdleTimout)*time.Second, false)
	s.IdleTimeoutFD = t.FD
	d.timeouts[s.ID] = t
	d.loop.Register(t.FD, reactor.RoleSessionTimeout, s.ID, reactor.EventRead, func(reactor.IOEvents) {
		d.handleSessionTimeout(s)
	})
}

func (d *Daemon) cancelSessionTimeout(s *session.Session) {
	if s.IdleTimeoutFD == -1 {
		return
	}
	if t, ok := d.timeouts[s.ID]; ok {
		d.loop.Unregister(t.FD)
		t.Close()
		delete(d.timeouts, s.ID)
	}
	s.IdleTimeoutFD = -1
}

func (d *Daemon) handleSessionTimeout(s *session.Session) {
	if t, ok := d.timeouts[s.ID]; ok {
		t.Drain()
	}
	d.log.Info().Int("session", s.ID).Log("idle timeout fired")
	d.terminateSession(s)
}

func (d *Daemon) handleSessionIO(s *session.Session, ev reactor.IOEvents) {
	if ev&(reactor.EventError|reactor.EventHangup) != 0 {
		d.terminateSession(s)
		return
	}

	switch s.State {
	case session.StateWriting:
		drained, err := s.WritePending()
		if err != nil {
			d.terminateSession(s)
			return
		}
		if drained {
			s.State = session.StateReading
			d.loop.Modify(s.FD, reactor.EventRead)
		}

	case session.StateReading, session.StateIdle:
		line, has, err := s.ReadInput()
		if err != nil {
			d.terminateSession(s)
			return
		}
		if !has {
			return
		}
		d.cancelSessionTimeout(s)
		d.dispatch(s, line)
	}
}

func (d *Daemon) dispatch(s *session.Session, line string) {
	cmd := protocol.Parse(line)
	pending := d.pendingEvents(s)
	result := protocol.Dispatch(cmd, s.State == session.StateIdle, pending, d.model)

	switch result.Action {
	case protocol.ActionClose:
		if result.Response != nil {
			s.QueueWrite(result.Response)
			d.flushThenClose(s)
			return
		}
		d.terminateSession(s)
		return

	case protocol.ActionEnterIdle:
		s.State = session.StateIdle
		d.subscribeIdle(s)
		return // idle session keeps no idle-timeout descriptor (invariant 3)

	case protocol.ActionExitIdle:
		d.unsubscribeIdle(s)
		s.QueueWrite(result.Response)
		d.loop.Modify(s.FD, reactor.EventWrite)
		d.armSessionTimeout(s)

	default:
		s.QueueWrite(result.Response)
		d.loop.Modify(s.FD, reactor.EventWrite)
		d.armSessionTimeout(s)
	}
}

// subscribeIdle registers s with the event bus, with a notify callback that
// fires the moment any GPIO event is published while s is idle (spec §4.E:
// "publish immediately flushes the session's queue into its output buffer
// and marks it for writing", exercised by the idle-fan-out scenario in
// spec §8 where an idle client receives an event without prompting).
func (d *Daemon) subscribeIdle(s *session.Session) {
	s.Sub = d.bus.SubscribeNotify(eventbus.DefaultQueueSize, func() {
		d.flushIdleSession(s)
	})
}

func (d *Daemon) unsubscribeIdle(s *session.Session) {
	if s.Sub == nil {
		return
	}
	d.bus.Unsubscribe(s.Sub)
	s.Sub = nil
}

// flushIdleSession drains whatever Publish just queued straight into s's
// output buffer and flips its reactor interest to writable, without
// waiting for the client to send noidle.
func (d *Daemon) flushIdleSession(s *session.Session) {
	pending := drainPending(s.Sub)
	if len(pending) == 0 {
		return
	}
	s.QueueWrite(protocol.RenderEvents(pending))
	d.loop.Modify(s.FD, reactor.EventWrite)
}

func (d *Daemon) pendingEvents(s *session.Session) []protocol.PendingEvent {
	if s.Sub == nil {
		return nil
	}
	return drainPending(s.Sub)
}

func drainPending(sub *eventbus.Subscriber) []protocol.PendingEvent {
	raw := sub.Drain()
	out := make([]protocol.PendingEvent, 0, len(raw))
	for _, e := range raw {
		out = append(out, protocol.PendingEvent{
			Line:        e.Line,
			Kind:        gpio.EventKind(e.Kind),
			TimestampMS: int64(e.TimestampNS / 1e6),
		})
	}
	return out
}

func (d *Daemon) flushThenClose(s *session.Session) {
	for {
		drained, err := s.WritePending()
		if err != nil || drained {
			break
		}
	}
	d.terminateSession(s)
}

func (d *Daemon) terminateSession(s *session.Session) {
	d.cancelSessionTimeout(s)
	d.unsubscribeIdle(s)
	d.loop.Unregister(s.FD)
	s.Close()
	d.sessions.Remove(s.ID)
}

func (d *Daemon) handleEdge(line *gpio.InputLine) {
	var lp *timerfd.Timer
	if t, ok := d.longPress[line.Num]; ok {
		lp = t
	} else if line.LongPress.Edge != gpio.EdgeNone {
		t, err := timerfd.New()
		if err == nil {
			d.longPress[line.Num] = t
			lp = t
			d.loop.Register(t.FD, reactor.RoleLongPressTimer, line.Num, reactor.EventRead, func(reactor.IOEvents) {
				d.handleLongPress(line)
			})
		}
	}
	d.engine.HandleEdge(context.Background(), line, lp)
}

func (d *Daemon) handleLongPress(line *gpio.InputLine) {
	t, ok := d.longPress[line.Num]
	if !ok {
		return
	}
	cur, err := gpio.GetValue(line.EdgeFD)
	if err != nil {
		d.log.Err().Err(err).Log("long-press: read current value failed")
		return
	}
	d.engine.HandleLongPress(context.Background(), line, t, cur)
}

// cancelBlinkTimer is model.onBlinkCancel: it tears down a blink timer's
// reactor registration and descriptor the same way onBlinkArmed's own
// natural-completion path does, so a gpioset/gpiotoggle that cancels a
// running blink leaves no leaked fd or epoll registration behind (spec §8
// scenario 6, "the blink timer descriptor is closed").
func (d *Daemon) cancelBlinkTimer(num int, t *timerfd.Timer) {
	d.loop.Unregister(t.FD)
	t.Close()
}

func (d *Daemon) onBlinkArmed(num int, t *timerfd.Timer, hasInterval bool) {
	d.loop.Register(t.FD, reactor.RoleOutputTimer, num, reactor.EventRead, func(reactor.IOEvents) {
		out := d.model.outputs[num]
		d.engine.HandleBlink(out, t, out.LineFD, hasInterval)
		if out.BlinkFD == -1 {
			d.loop.Unregister(t.FD)
			t.Close()
			delete(d.model.blinkTimers, num)
		}
	})
}

func (d *Daemon) shutdown() {
	for _, s := range d.sessions.All() {
		d.terminateSession(s)
	}
	for _, t := range d.timeouts {
		t.Close()
	}
	for _, t := range d.longPress {
		t.Close()
	}
	for _, t := range d.model.blinkTimers {
		t.Close()
	}
	d.listener.Close()
	d.chip.Close()
	d.loop.Close()
}
