package gpio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mygpiod/mygpiod/internal/errkind"
)

// Chip is an open GPIO character device, the root of component C's runtime
// state (spec §4.C: open_chip, request_input, request_output, get_value,
// set_value, toggle_value).
type Chip struct {
	fd       int
	path     string
	numLines uint32
}

// OpenChip opens a GPIO character device, per spec §4.C "open_chip".
func OpenChip(path string) (*Chip, error) {
	// The chip is opened with open(2) directly rather than through an
	// *os.File, whose finalizer would close fd once the File is collected;
	// Chip owns fd's lifetime from here on.
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "open chip "+path, err)
	}
	ci, err := chipGetInfo(fd)
	if err != nil {
		unixClose(fd)
		return nil, errkind.Wrapf(errkind.ErrInvalidConfiguration, "chip info "+path, err)
	}
	if ci.lines == 0 || ci.lines > GPIOMax {
		unixClose(fd)
		return nil, errkind.Wrap(errkind.ErrInvalidConfiguration,
			fmt.Sprintf("chip %s reports %d lines, out of range", path, ci.lines))
	}
	return &Chip{fd: fd, path: path, numLines: ci.lines}, nil
}

// NumLines is the chip's line count, used to validate configured line
// numbers against spec invariant "line number must be < NumLines".
func (c *Chip) NumLines() uint32 { return c.numLines }

// Close releases the chip fd only. The line request fds stored by
// RequestInput/RequestOutput are separate descriptors that Close does not
// release, and unregistering them from the reactor does not close them
// either.
func (c *Chip) Close() error {
	return unixClose(c.fd)
}

// RequestInput requests line in.Num as an input, arming edge detection per
// in.Edges, and stores the resulting descriptor on in.EdgeFD. Spec §4.C
// "request_input".
func (c *Chip) RequestInput(in *InputLine) error {
	if uint32(in.Num) >= c.numLines {
		return errkind.Wrap(errkind.ErrInvalidArgument,
			fmt.Sprintf("input line %d: chip only has %d lines", in.Num, c.numLines))
	}
	flags := buildFlags(false, in.ActiveLow, in.Bias, DrivePushPull, in.Edges, in.Clock)
	fd, err := requestLine(c.fd, uint32(in.Num), "mygpiod", flags, in.DebounceUS, nil)
	if err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, fmt.Sprintf("request input %d", in.Num), err)
	}
	in.EdgeFD = fd
	return nil
}

// RequestOutput requests line out.Num as an output, driving it to its
// initial level, and stores the resulting descriptor on out.LineFD. Spec
// §4.C "request_output".
func (c *Chip) RequestOutput(out *OutputLine) error {
	if uint32(out.Num) >= c.numLines {
		return errkind.Wrap(errkind.ErrInvalidArgument,
			fmt.Sprintf("output line %d: chip only has %d lines", out.Num, c.numLines))
	}
	active := out.Initial == ValueActive
	flags := buildFlags(true, false, BiasAsIs, out.Drive, EdgeNone, ClockMonotonic)
	fd, err := requestLine(c.fd, uint32(out.Num), "mygpiod", flags, 0, &active)
	if err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, fmt.Sprintf("request output %d", out.Num), err)
	}
	out.LineFD = fd
	out.Level = out.Initial
	return nil
}

// GetValue reads the current level of a requested line. Spec §4.C
// "get_value".
func GetValue(lineFD int) (Value, error) {
	active, err := getLineValue(lineFD)
	if err != nil {
		return ValueError, errkind.Wrapf(errkind.ErrExecutionFailed, "get_value", err)
	}
	if active {
		return ValueActive, nil
	}
	return ValueInactive, nil
}

// SetValue drives a requested output line to the given level. Spec §4.C
// "set_value".
func SetValue(lineFD int, v Value) error {
	if err := setLineValue(lineFD, v == ValueActive); err != nil {
		return errkind.Wrapf(errkind.ErrExecutionFailed, "set_value", err)
	}
	return nil
}

// ToggleValue flips a requested output line and returns its new level.
// Spec §4.C "toggle_value".
func ToggleValue(lineFD int, cur Value) (Value, error) {
	next := ValueActive
	if cur == ValueActive {
		next = ValueInactive
	}
	if err := SetValue(lineFD, next); err != nil {
		return ValueError, err
	}
	return next, nil
}

// ReadEdge reads one edge event from an input line's descriptor and
// classifies its direction. Spec §4.D step 1.
func ReadEdge(lineFD int) (EventKind, error) {
	ev, err := readLineEvent(lineFD)
	if err != nil {
		return 0, errkind.Wrapf(errkind.ErrExecutionFailed, "read edge", err)
	}
	if ev.ID == lineEventRisingEdge {
		return EventRising, nil
	}
	return EventFalling, nil
}
