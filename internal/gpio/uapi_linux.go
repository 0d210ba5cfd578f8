//go:build linux

// uapi_linux.go talks directly to the Linux GPIO character-device v2 uAPI
// (<linux/gpio.h>) via raw ioctls. The ioctl numbers, flag bits and struct
// layouts are grounded on the GPIO v2 definitions retrieved from
// periph.io/x/periph/host/gpioioctl in the example pack.
//
// This bypasses github.com/warthog618/gpiod's own line-request API
// deliberately: that library hands edge events to a callback driven by its
// own background watcher goroutine, not a descriptor the caller can put in
// its own epoll set -- but the reactor (component I) needs exactly that, to
// multiplex GPIO edges with timers and sockets in one epoll_wait. Talking
// the uAPI directly is the only way to get a raw, reactor-owned fd per
// line.
package gpio

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	maxNameSize  = 32
	lineNumAttrs = 10
	linesMax     = 64
)

// GPIO v2 line flag bits.
const (
	flagUsed             uint64 = 1 << 0
	flagActiveLow        uint64 = 1 << 1
	flagInput            uint64 = 1 << 2
	flagOutput           uint64 = 1 << 3
	flagEdgeRising       uint64 = 1 << 4
	flagEdgeFalling      uint64 = 1 << 5
	flagOpenDrain        uint64 = 1 << 6
	flagOpenSource       uint64 = 1 << 7
	flagBiasPullUp       uint64 = 1 << 8
	flagBiasPullDown     uint64 = 1 << 9
	flagBiasDisabled     uint64 = 1 << 10
	flagEventClockRT     uint64 = 1 << 11
	flagEventClockHTE    uint64 = 1 << 12
)

const (
	lineAttrIDFlags        uint32 = 1
	lineAttrIDOutputValues uint32 = 2
	lineAttrIDDebounce     uint32 = 3
)

const (
	lineEventRisingEdge  uint32 = 1
	lineEventFallingEdge uint32 = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	const (
		nrbits   = 8
		typebits = 8
		sizebits = 14
		nrshift  = 0
	)
	typeshift := uintptr(nrshift + nrbits)
	sizeshift := typeshift + typebits
	dirshift := sizeshift + sizebits
	return dir<<dirshift | typ<<typeshift | nr<<nrshift | size<<sizeshift
}

func ior(typ, nr, size uintptr) uintptr  { return ioc(2, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(2|1, typ, nr, size) }

var (
	gpioGetChipInfoIOCTL    = ior(0xb4, 0x01, unsafe.Sizeof(chipInfo{}))
	gpioV2GetLineInfoIOCTL  = iowr(0xb4, 0x05, unsafe.Sizeof(lineInfo{}))
	gpioV2GetLineIOCTL      = iowr(0xb4, 0x07, unsafe.Sizeof(lineRequest{}))
	gpioV2LineSetConfigIOCTL = iowr(0xb4, 0x0d, unsafe.Sizeof(lineConfig{}))
	gpioV2LineGetValuesIOCTL = iowr(0xb4, 0x0e, unsafe.Sizeof(lineValues{}))
	gpioV2LineSetValuesIOCTL = iowr(0xb4, 0x0f, unsafe.Sizeof(lineValues{}))
)

type chipInfo struct {
	name  [maxNameSize]byte
	label [maxNameSize]byte
	lines uint32
}

type lineAttribute struct {
	id      uint32
	padding uint32
	value   uint64
}

type lineConfigAttribute struct {
	attr lineAttribute
	mask uint64
}

type lineConfig struct {
	flags    uint64
	numAttrs uint32
	padding  [5]uint32
	attrs    [lineNumAttrs]lineConfigAttribute
}

type lineRequest struct {
	offsets         [linesMax]uint32
	consumer        [maxNameSize]byte
	config          lineConfig
	numLines        uint32
	eventBufferSize uint32
	padding         [5]uint32
	fd              int32
}

type lineValues struct {
	bits uint64
	mask uint64
}

type lineInfo struct {
	name     [maxNameSize]byte
	consumer [maxNameSize]byte
	offset   uint32
	numAttrs uint32
	flags    uint64
	attrs    [lineNumAttrs]lineAttribute
	padding  [4]uint32
}

// lineEvent mirrors struct gpio_v2_line_event, read() from a line request
// fd whenever an edge is reported.
type lineEvent struct {
	TimestampNS uint64
	ID          uint32
	Offset      uint32
	Seqno       uint32
	LineSeqno   uint32
	Padding     [6]uint32
}

const lineEventSize = 8 + 4 + 4 + 4 + 4 + 6*4

func unixClose(fd int) error {
	return unix.Close(fd)
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func chipGetInfo(fd int) (chipInfo, error) {
	var ci chipInfo
	err := ioctlPtr(fd, gpioGetChipInfoIOCTL, unsafe.Pointer(&ci))
	return ci, err
}

func lineGetInfo(fd int, offset uint32) (lineInfo, error) {
	var li lineInfo
	li.offset = offset
	err := ioctlPtr(fd, gpioV2GetLineInfoIOCTL, unsafe.Pointer(&li))
	return li, err
}

// buildFlags translates this package's enums into GPIO v2 line flag bits.
func buildFlags(isOutput bool, activeLow bool, bias Bias, drive Drive, edges Edge, clock EventClock) uint64 {
	var f uint64
	if isOutput {
		f |= flagOutput
	} else {
		f |= flagInput
	}
	if activeLow {
		f |= flagActiveLow
	}
	switch bias {
	case BiasPullUp:
		f |= flagBiasPullUp
	case BiasPullDown:
		f |= flagBiasPullDown
	case BiasDisabled:
		f |= flagBiasDisabled
	}
	switch drive {
	case DriveOpenDrain:
		f |= flagOpenDrain
	case DriveOpenSource:
		f |= flagOpenSource
	}
	if edges == EdgeRising || edges == EdgeBoth {
		f |= flagEdgeRising
	}
	if edges == EdgeFalling || edges == EdgeBoth {
		f |= flagEdgeFalling
	}
	if clock == ClockRealtime {
		f |= flagEventClockRT
	} else if clock == ClockHTE {
		f |= flagEventClockHTE
	}
	return f
}

func requestLine(chipFD int, offset uint32, consumer string, flags uint64, debounceUS int, outputValue *bool) (int, error) {
	var req lineRequest
	req.offsets[0] = offset
	req.numLines = 1
	copy(req.consumer[:], consumer)
	req.config.flags = flags
	req.eventBufferSize = 64

	nAttrs := uint32(0)
	if debounceUS > 0 {
		req.config.attrs[nAttrs] = lineConfigAttribute{
			attr: lineAttribute{id: lineAttrIDDebounce, value: uint64(debounceUS)},
			mask: 1,
		}
		nAttrs++
	}
	if outputValue != nil {
		bits := uint64(0)
		if *outputValue {
			bits = 1
		}
		req.config.attrs[nAttrs] = lineConfigAttribute{
			attr: lineAttribute{id: lineAttrIDOutputValues, value: bits},
			mask: 1,
		}
		nAttrs++
	}
	req.config.numAttrs = nAttrs

	if err := ioctlPtr(chipFD, gpioV2GetLineIOCTL, unsafe.Pointer(&req)); err != nil {
		return -1, fmt.Errorf("gpio: request line %d: %w", offset, err)
	}
	return int(req.fd), nil
}

func getLineValue(lineFD int) (bool, error) {
	var v lineValues
	v.mask = 1
	if err := ioctlPtr(lineFD, gpioV2LineGetValuesIOCTL, unsafe.Pointer(&v)); err != nil {
		return false, err
	}
	return v.bits&1 != 0, nil
}

func setLineValue(lineFD int, active bool) error {
	var v lineValues
	v.mask = 1
	if active {
		v.bits = 1
	}
	return ioctlPtr(lineFD, gpioV2LineSetValuesIOCTL, unsafe.Pointer(&v))
}

// readLineEvent reads one edge event from a line request fd, per spec
// §4.D step 1 ("read up to a fixed number of edge events").
func readLineEvent(lineFD int) (lineEvent, error) {
	var buf [lineEventSize]byte
	n, err := unix.Read(lineFD, buf[:])
	if err != nil {
		return lineEvent{}, err
	}
	if n != lineEventSize {
		return lineEvent{}, fmt.Errorf("gpio: short read of line event: %d bytes", n)
	}
	return decodeLineEvent(buf[:]), nil
}

func decodeLineEvent(b []byte) lineEvent {
	le := (*lineEvent)(unsafe.Pointer(&b[0]))
	return *le
}
