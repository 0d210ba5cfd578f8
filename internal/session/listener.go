// Package session is components F and G: the AF_UNIX control-socket
// listener and the per-client session state machine. Grounded on the
// teacher eventloop's own fd-ownership discipline (every descriptor has
// exactly one owner, responsible for closing it) applied here to
// sockets instead of promises/timers.
package session

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/mygpiod/mygpiod/internal/errkind"
)

const listenBacklog = 10

// Listener owns the control-socket's listening descriptor (component F).
type Listener struct {
	FD   int
	path string
}

// NewListener creates, binds and listens on a filesystem AF_UNIX socket at
// path, per spec §4.F: unlinks any pre-existing entry, non-blocking,
// close-on-exec, backlog 10.
func NewListener(path string) (*Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "unlink stale socket", err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrExecutionFailed, "socket", err)
	}

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "bind "+path, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, errkind.Wrapf(errkind.ErrExecutionFailed, "listen", err)
	}

	return &Listener{FD: fd, path: path}, nil
}

// Accept accepts one pending connection, applying non-blocking and
// close-on-exec to the new descriptor. Returns (-1, nil, nil) when no
// connection is pending (EAGAIN).
func (l *Listener) Accept() (int, unix.Sockaddr, error) {
	fd, sa, err := unix.Accept4(l.FD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return -1, nil, nil
		}
		return -1, nil, errkind.Wrapf(errkind.ErrExecutionFailed, "accept", err)
	}
	return fd, sa, nil
}

// Close releases the listening descriptor and unlinks the socket path.
func (l *Listener) Close() error {
	unix.Close(l.FD)
	return os.Remove(l.path)
}
