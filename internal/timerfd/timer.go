//go:build linux

// Package timerfd wraps Linux timerfd descriptors (component B), used for
// long-press arming, output blinking and the per-session idle timeout. Every
// timer surfaces as a plain readable fd so the reactor can poll it
// alongside GPIO edges and sockets in one epoll_wait, grounded on the same
// "everything is a descriptor" discipline the teacher's eventloop applies
// to its own wakeup pipe (wakeup_linux.go).
package timerfd

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/mygpiod/mygpiod/internal/errkind"
)

// Timer is one armed or idle timerfd.
type Timer struct {
	FD int
}

// New creates a disarmed monotonic timerfd.
func New() (*Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrExecutionFailed, "timerfd_create", err)
	}
	return &Timer{FD: fd}, nil
}

// Set arms the timer to fire once after d, or repeatedly every d if repeat
// is true. d of zero or less disarms it.
func (t *Timer) Set(d time.Duration, repeat bool) error {
	if d <= 0 {
		return t.Disarm()
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(int64(d)),
	}
	if repeat {
		spec.Interval = unix.NsecToTimespec(int64(d))
	}
	if err := unix.TimerfdSettime(t.FD, 0, &spec, nil); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "timerfd_settime", err)
	}
	return nil
}

// Disarm cancels any pending expiry without closing the fd.
func (t *Timer) Disarm() error {
	var spec unix.ItimerSpec
	if err := unix.TimerfdSettime(t.FD, 0, &spec, nil); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "timerfd_settime disarm", err)
	}
	return nil
}

// Armed reports whether the timer currently has a pending expiry.
func (t *Timer) Armed() (bool, error) {
	var cur unix.ItimerSpec
	if err := unix.TimerfdGettime(t.FD, &cur); err != nil {
		return false, errkind.Wrapf(errkind.ErrExecutionFailed, "timerfd_gettime", err)
	}
	return cur.Value.Sec != 0 || cur.Value.Nsec != 0, nil
}

// Drain reads and discards the expiry counter, as required after every
// readable wakeup on a timerfd before it reports not-ready again.
func (t *Timer) Drain() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(t.FD, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return 0, nil
		}
		return 0, errkind.Wrapf(errkind.ErrExecutionFailed, "read timerfd", err)
	}
	if n != 8 {
		return 0, nil
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// Close releases the underlying descriptor.
func (t *Timer) Close() error {
	return unix.Close(t.FD)
}
