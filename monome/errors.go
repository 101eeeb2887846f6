package monome

import (
	"errors"
	"fmt"
)

var (
	// ErrWriteMismatch is returned when the transport did not accept the
	// whole frame.
	ErrWriteMismatch = errors.New("monome: transport write mismatch")
	// ErrUnrecognized is returned for an incoming frame with an unknown
	// leading byte.
	ErrUnrecognized = errors.New("monome: unrecognized frame")
	// ErrFrameSentinel is returned when LedFrame stops at a zero row.
	ErrFrameSentinel = errors.New("monome: zero row ends frame")
	ErrNoData        = errors.New("monome: not enough bitmap data")
	ErrReleased      = errors.New("monome: device released")
	ErrUnknownProto  = errors.New("monome: unknown protocol")
)

// RowError reports the row a multi-frame operation (Clear, LedFrame)
// failed or stopped on. Err is the underlying cause.
type RowError struct {
	Row uint
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }
