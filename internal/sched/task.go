package sched

import "math"

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// Task represents one periodic task.
//
// Exactly one of Rates and Costs is set. Rates holds one speed multiplier
// per core; Costs holds the fixed execution cost on each core of a
// two-core machine.
type Task struct {
	ID        TaskID
	Period    int64     // positive, in simulated time units
	Exec      float64   // execution requirement per period (rate model)
	Rates     []float64 // per-core rate multipliers (rate model)
	Costs     []float64 // per-core execution costs (two-core model)
	Remaining int64     // time left in the current period, owned by the Driver
}

// NewTask creates a rate-model task. The remaining period starts at the full period.
func NewTask(id TaskID, exec float64, period int64, rates []float64) (*Task, error) {
	if period <= 0 {
		return nil, invalidf("task %d: period %d must be positive", id, period)
	}
	if !(exec > 0) || math.IsInf(exec, 0) {
		return nil, invalidf("task %d: execution requirement %g must be positive", id, exec)
	}
	if len(rates) < 2 {
		return nil, invalidf("task %d: need a rate for at least two cores, got %d", id, len(rates))
	}
	for c, r := range rates {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, invalidf("task %d: rate %g on core %d must be positive", id, r, c)
		}
	}

	return &Task{
		ID:        id,
		Period:    period,
		Exec:      exec,
		Rates:     append([]float64(nil), rates...),
		Remaining: period,
	}, nil
}

// NewTwoCoreTask creates a task from fixed execution costs on core 0 and core 1.
func NewTwoCoreTask(id TaskID, cost0, cost1 float64, period int64) (*Task, error) {
	if period <= 0 {
		return nil, invalidf("task %d: period %d must be positive", id, period)
	}
	for c, e := range []float64{cost0, cost1} {
		if !(e > 0) || math.IsInf(e, 0) {
			return nil, invalidf("task %d: execution cost %g on core %d must be positive", id, e, c)
		}
	}

	return &Task{
		ID:        id,
		Period:    period,
		Costs:     []float64{cost0, cost1},
		Remaining: period,
	}, nil
}

// CoreCount is the number of cores the task is defined over.
func (t *Task) CoreCount() int {
	if t.Costs != nil {
		return len(t.Costs)
	}
	return len(t.Rates)
}

// Utilizations returns a fresh slice of per-core utilizations.
func (t *Task) Utilizations() []float64 {
	p := float64(t.Period)
	if t.Costs != nil {
		out := make([]float64, len(t.Costs))
		for c, e := range t.Costs {
			out[c] = e / p
		}
		return out
	}
	out := make([]float64, len(t.Rates))
	for c, r := range t.Rates {
		out[c] = t.Exec / (p * r)
	}
	return out
}

// Utilization of the task on a single core.
func (t *Task) Utilization(core CoreID) float64 {
	if t.Costs != nil {
		return t.Costs[core] / float64(t.Period)
	}
	return t.Exec / (float64(t.Period) * t.Rates[core])
}

// Share is the time budget the task needs on core within a frame.
func (t *Task) Share(core CoreID, frameLength float64) float64 {
	return t.Utilization(core) * frameLength
}

// taskLoad is the per-frame snapshot of a task's derived values.
type taskLoad struct {
	task    *Task
	order   int
	util    []float64
	minUtil float64
}

func snapshot(tasks []*Task) []*taskLoad {
	loads := make([]*taskLoad, len(tasks))
	for i, t := range tasks {
		u := t.Utilizations()
		m := u[0]
		for _, v := range u[1:] {
			if v < m {
				m = v
			}
		}
		loads[i] = &taskLoad{task: t, order: i, util: u, minUtil: m}
	}
	return loads
}

func (l *taskLoad) share(core CoreID, frameLength float64) float64 {
	return l.util[core] * frameLength
}
