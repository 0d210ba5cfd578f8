// Package errkind defines the error taxonomy shared by every mygpiod
// component, so handlers can branch with errors.Is instead of string
// comparison.
package errkind

import "errors"

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", ErrX) at the call
// site to add context while keeping errors.Is matching intact.
var (
	// ErrInvalidConfiguration is detected at startup; startup aborts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidArgument comes from a client command. The session emits
	// ERROR:<reason> and continues, unless the session is idle.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted is a descriptor-limit or out-of-memory condition.
	// The offending accept/subscription is rejected; the daemon continues.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrPeerGone marks a hang-up or short read on a session socket.
	ErrPeerGone = errors.New("peer gone")

	// ErrTimeout marks an idle-timeout expiry.
	ErrTimeout = errors.New("timeout")

	// ErrExecutionFailed marks an action executor that could not run.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrFatal marks a signal-triggered shutdown request.
	ErrFatal = errors.New("fatal")
)

// Wrap annotates err with msg while keeping errors.Is(result, kind) true.
func Wrap(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Wrapf is Wrap plus an underlying cause: the result reads "msg: cause" and
// matches both kind and cause with errors.Is.
func Wrapf(kind error, msg string, cause error) error {
	return &kindError{kind: kind, msg: msg, cause: cause}
}

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}
