package report

import (
	"errors"
	"io"

	"pairsched/internal/sched"
)

// Multi fans a frame out to several reporters, stopping at the first error.
type Multi []sched.Reporter

func (m Multi) ReportFrame(fr sched.FrameReport) error {
	for _, r := range m {
		if err := r.ReportFrame(fr); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every reporter that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if c, ok := r.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
