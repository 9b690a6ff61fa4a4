// internal/sched/driver.go

package sched

import (
	"context"
	"errors"
	"fmt"

	"pairsched/internal/logging"

	"github.com/sirupsen/logrus"
)

// Reporter receives one report per successfully scheduled frame.
type Reporter interface {
	ReportFrame(FrameReport) error
}

// ClusterReport summarizes one cluster of a frame.
type ClusterReport struct {
	Key           ClusterKey
	TaskIDs       []TaskID
	SpareCapacity float64
}

// FrameReport is everything the driver knows about a finished frame.
type FrameReport struct {
	Index    int64
	Start    int64
	Length   int64
	Clusters []ClusterReport
	Schedule *ScheduleTable
	Trace    []Event // cluster construction followed by intra-cluster resolution
}

// Driver steps simulated time frame by frame and recomputes the schedule at
// the start of every frame.
type Driver struct {
	cfg      Config
	cores    CoreSet
	tasks    []*Task
	clock    *FrameClock
	reporter Reporter
	log      *logrus.Entry
}

// NewDriver validates the task set against the cores. The driver takes
// ownership of the tasks' remaining-period counters.
func NewDriver(cfg Config, cores CoreSet, tasks []*Task, reporter Reporter) (*Driver, error) {
	if len(tasks) == 0 {
		return nil, invalidf("empty task set")
	}
	if err := cores.Validate(tasks); err != nil {
		return nil, err
	}
	if cfg.Horizon <= 0 {
		return nil, invalidf("horizon %d must be positive", cfg.Horizon)
	}
	if cfg.CapacityTolerance < 0 {
		return nil, invalidf("capacity tolerance %g must not be negative", cfg.CapacityTolerance)
	}

	return &Driver{
		cfg:      cfg,
		cores:    cores,
		tasks:    tasks,
		clock:    &FrameClock{},
		reporter: reporter,
		log: logging.GetLogger().WithFields(logrus.Fields{
			"cores": len(cores),
			"tasks": len(tasks),
		}),
	}, nil
}

// Clock exposes the driver's simulated time.
func (d *Driver) Clock() *FrameClock { return d.clock }

// Run schedules frames until the horizon is reached, the task set turns out
// to be infeasible, or ctx is cancelled between two frames.
func (d *Driver) Run(ctx context.Context) error {
	d.log.WithField("horizon", d.cfg.Horizon).Info("Starting frame schedule")

	for d.clock.Elapsed() < d.cfg.Horizon {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.Step(); err != nil {
			return err
		}
	}

	d.log.WithFields(logrus.Fields{
		"frames":  d.clock.Frames(),
		"elapsed": d.clock.Elapsed(),
	}).Info("Reached horizon")
	return nil
}

// Step schedules exactly one frame and hands it to the reporter.
func (d *Driver) Step() (FrameReport, error) {
	// 1) tasks whose period just ended start a new one
	for _, t := range d.tasks {
		if t.Remaining == 0 {
			t.Remaining = t.Period
		}
	}

	// 2) frame length is the nearest period end
	frame := d.tasks[0].Remaining
	for _, t := range d.tasks[1:] {
		if t.Remaining < frame {
			frame = t.Remaining
		}
	}
	if frame <= 0 {
		return FrameReport{}, fmt.Errorf("frame %d: non-positive frame length %d: %w", d.clock.Frames(), frame, ErrInvalidInput)
	}

	index, start := d.clock.Frames(), d.clock.Elapsed()
	flog := d.log.WithFields(logrus.Fields{
		"frame":        index,
		"start":        start,
		"frame_length": frame,
	})

	// 3) cluster construction
	set, err := BuildClusters(d.tasks, d.cores, float64(frame), d.cfg.CapacityTolerance)
	if err != nil {
		var inf *InfeasibleError
		if errors.As(err, &inf) {
			inf.Frame = index
			flog.WithField("task_id", inf.TaskID).Error("Infeasible task set")
		}
		return FrameReport{}, err
	}

	// 4) intra-cluster resolution
	table := ResolveSchedule(set, ResolveOptions{
		Overflow: d.cfg.OverflowPolicy,
		Parallel: d.cfg.ParallelClusters,
	})

	report := FrameReport{
		Index:    index,
		Start:    start,
		Length:   frame,
		Schedule: table,
		Trace:    append(append([]Event(nil), set.Trace()...), table.Trace()...),
	}
	for _, c := range set.Clusters() {
		report.Clusters = append(report.Clusters, ClusterReport{
			Key:           c.Key,
			TaskIDs:       c.TaskIDs(),
			SpareCapacity: c.SpareCapacity,
		})
	}

	if n := table.Overflows(); n > 0 {
		flog.WithFields(logrus.Fields{
			"overflow": n,
			"policy":   d.cfg.OverflowPolicy,
		}).Warn("Tasks overflowed both cores of their cluster")
	}
	flog.WithField("clusters", set.Len()).Debug("Frame scheduled")
	for _, ev := range report.Trace {
		flog.WithFields(logrus.Fields{
			"event":   ev.Kind.String(),
			"task_id": ev.TaskID,
			"core":    ev.Core,
			"cluster": ev.Cluster.String(),
			"demand":  ev.Demand,
			"spare":   ev.Spare,
		}).Trace("Placement decision")
	}

	if d.reporter != nil {
		if err := d.reporter.ReportFrame(report); err != nil {
			return report, fmt.Errorf("report frame %d: %w", index, err)
		}
	}

	// 5) and 6) consume the frame
	for _, t := range d.tasks {
		t.Remaining -= frame
	}
	d.clock.Advance(frame)

	return report, nil
}
