package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesErrorsIs(t *testing.T) {
	err := Wrap(ErrInvalidArgument, "line 9 is not an output")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "line 9 is not an output", err.Error())
}

func TestWrapfPreservesBothKindAndCause(t *testing.T) {
	cause := errors.New("device busy")
	err := Wrapf(ErrExecutionFailed, "action failed", cause)

	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "action failed: device busy", err.Error())
}
