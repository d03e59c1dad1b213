package vcican

import (
	"errors"
	"fmt"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct, retrying the
// operation that returned it is pointless
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var ue unrecoverableError
	return !errors.As(err, &ue)
}

var (
	ErrOpenFailed     = errors.New("failed to open device")
	ErrInitFailed     = errors.New("failed to initialize")
	ErrStartFailed    = errors.New("failed to start")
	ErrTransmitFailed = errors.New("failed to transmit")
	ErrReceiveFailed  = errors.New("failed to receive")
	ErrCloseFailed    = errors.New("failed to close device")

	ErrInvalidState   = errors.New("invalid session state")
	ErrInvalidChannel = errors.New("invalid channel")
	ErrDataLength     = errors.New("data length out of range")
	ErrNilDriver      = errors.New("driver is nil")
	ErrNilKeySource   = errors.New("key source is nil")
)

// DriverError reports a failed driver call. Op is one of the ErrXxxFailed
// sentinels, errors.Is matches against it.
type DriverError struct {
	Op      error
	Channel Channel
	// PerChannel is false for device level operations (open, close).
	PerChannel bool
	Err        error
}

func (e *DriverError) Error() string {
	msg := e.Op.Error()
	if e.PerChannel {
		msg += " " + e.Channel.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DriverError) Is(target error) bool {
	return target == e.Op
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

func deviceError(op error, err error) *DriverError {
	return &DriverError{Op: op, Err: err}
}

func channelError(op error, ch Channel, err error) *DriverError {
	return &DriverError{Op: op, Channel: ch, PerChannel: true, Err: err}
}

type stateError struct {
	op    string
	state State
}

func (e *stateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.op, e.state)
}

func (e *stateError) Is(target error) bool {
	return target == ErrInvalidState
}
