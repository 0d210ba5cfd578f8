package session

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mygpiod/mygpiod/internal/errkind"
	"github.com/mygpiod/mygpiod/internal/eventbus"
)

// State is one client session's position in the spec §4.G state machine.
type State int

const (
	StateReading State = iota
	StateIdle
	StateWriting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateIdle:
		return "idle"
	case StateWriting:
		return "writing"
	default:
		return "terminated"
	}
}

// BufferSizeInputMax is the spec default for the input line length bound.
const BufferSizeInputMax = 4096

// Session is one accepted client connection (component G).
type Session struct {
	ID    int
	FD    int
	State State

	in      []byte
	out     []byte
	written int

	IdleTimeoutFD int // -1 when idle mode is active (no timeout armed)

	Sub *eventbus.Subscriber
}

// New builds a Session in the *writing* state with the welcome banner
// queued, per spec §4.G "new -> writing on accept".
func New(id, fd int, welcome []byte) *Session {
	return &Session{
		ID:            id,
		FD:            fd,
		State:         StateWriting,
		out:           welcome,
		IdleTimeoutFD: -1,
	}
}

// QueueWrite appends data to the outbound buffer and transitions to
// *writing* if the session was *reading*.
func (s *Session) QueueWrite(data []byte) {
	s.out = append(s.out, data...)
	if s.State == StateReading {
		s.State = StateWriting
	}
}

// ReadInput performs one non-blocking read, appending to the input buffer.
// It reports a complete line (trimmed) if the buffer now contains one, and
// an error (ErrResourceExhausted) if the buffer would exceed
// BufferSizeInputMax without a newline.
func (s *Session) ReadInput() (line string, hasLine bool, err error) {
	var buf [4096]byte
	n, rerr := unix.Read(s.FD, buf[:])
	if rerr != nil {
		if rerr == unix.EAGAIN {
			return "", false, nil
		}
		return "", false, errkind.Wrapf(errkind.ErrPeerGone, "read", rerr)
	}
	if n == 0 {
		return "", false, errkind.Wrap(errkind.ErrPeerGone, "peer closed connection")
	}
	s.in = append(s.in, buf[:n]...)

	if len(s.in) > BufferSizeInputMax && !strings.Contains(string(s.in), "\n") {
		return "", false, errkind.Wrap(errkind.ErrResourceExhausted, "input line too long")
	}

	idx := strings.IndexByte(string(s.in), '\n')
	if idx < 0 {
		return "", false, nil
	}
	raw := string(s.in[:idx])
	s.in = s.in[idx+1:]
	return strings.TrimSpace(raw), true, nil
}

// WritePending writes one chunk of the outbound buffer. Returns true once
// fully drained, at which point the caller should transition to *reading*.
func (s *Session) WritePending() (drained bool, err error) {
	if s.written >= len(s.out) {
		s.out = s.out[:0]
		s.written = 0
		return true, nil
	}
	n, werr := unix.Write(s.FD, s.out[s.written:])
	if werr != nil {
		if werr == unix.EAGAIN {
			return false, nil
		}
		return false, errkind.Wrapf(errkind.ErrPeerGone, "write", werr)
	}
	s.written += n
	if s.written >= len(s.out) {
		s.out = s.out[:0]
		s.written = 0
		return true, nil
	}
	return false, nil
}

// HasPendingOutput reports whether any bytes remain queued for write.
func (s *Session) HasPendingOutput() bool {
	return s.written < len(s.out)
}

// Close releases the session's socket descriptor. The idle-timeout and
// event-bus subscription are the caller's responsibility to tear down
// first (they are owned by the reactor and the bus, respectively).
func (s *Session) Close() error {
	s.State = StateTerminated
	return unix.Close(s.FD)
}
