package sched

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed task record or a degenerate cluster.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInfeasibleTaskSet is returned when some task cannot be placed in a frame.
	ErrInfeasibleTaskSet = errors.New("infeasible task set")

	// ErrNotFound signals a broken invariant: a core expected to belong to a
	// cluster built this frame does not.
	ErrNotFound = errors.New("not found")
)

// InfeasibleError identifies the frame and the task that could not be placed.
type InfeasibleError struct {
	Frame       int64
	FrameLength float64
	TaskID      TaskID
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("frame %d (length %g): task %d cannot be placed on any cluster", e.Frame, e.FrameLength, e.TaskID)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasibleTaskSet }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
