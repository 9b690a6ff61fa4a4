// internal/sched/intracluster.go

package sched

import (
	"sort"
	"sync"

	"github.com/emirpasic/gods/lists/arraylist"
)

// OverflowPolicy decides where a task goes when neither pass of the
// intra-cluster resolution took it.
type OverflowPolicy string

const (
	// OverflowGreaterCapacity places the task on the core with more remaining
	// capacity, the lower core on a tie.
	OverflowGreaterCapacity OverflowPolicy = "greater-capacity"
	// OverflowFirstCore always places the task on the lower core.
	OverflowFirstCore OverflowPolicy = "first-core"
)

func (p OverflowPolicy) valid() bool {
	return p == OverflowGreaterCapacity || p == OverflowFirstCore
}

// Placement is one task scheduled on one core for a frame.
type Placement struct {
	TaskID   TaskID
	Cluster  ClusterKey
	Share    float64
	Overflow bool
}

// ScheduleTable maps every clustered core to the tasks it runs this frame.
type ScheduleTable struct {
	FrameLength float64

	placements map[CoreID][]Placement
	remaining  map[CoreID]float64
	trace      []Event
}

// Cores lists the scheduled cores in ascending order.
func (st *ScheduleTable) Cores() []CoreID {
	out := make([]CoreID, 0, len(st.remaining))
	for c := range st.remaining {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (st *ScheduleTable) Tasks(core CoreID) []Placement { return st.placements[core] }

// Remaining is the capacity left on core; negative once a share overran it.
func (st *ScheduleTable) Remaining(core CoreID) float64 { return st.remaining[core] }

// CoreOf finds the core a task was scheduled on.
func (st *ScheduleTable) CoreOf(id TaskID) (CoreID, bool) {
	for c, ps := range st.placements {
		for _, p := range ps {
			if p.TaskID == id {
				return c, true
			}
		}
	}
	return 0, false
}

func (st *ScheduleTable) Overflows() int {
	n := 0
	for _, ps := range st.placements {
		for _, p := range ps {
			if p.Overflow {
				n++
			}
		}
	}
	return n
}

func (st *ScheduleTable) Trace() []Event { return st.trace }

// ResolveOptions tunes ResolveSchedule.
type ResolveOptions struct {
	Overflow OverflowPolicy
	Parallel bool // resolve clusters on separate goroutines
}

// ResolveSchedule decides, cluster by cluster, which of the two cores runs
// each allocated task. Every core starts the frame with capacity equal to
// the frame length.
func ResolveSchedule(set *ClusterSet, opts ResolveOptions) *ScheduleTable {
	if !opts.Overflow.valid() {
		opts.Overflow = OverflowGreaterCapacity
	}

	clusters := set.Clusters()
	results := make([]clusterSchedule, len(clusters))
	if opts.Parallel {
		var wg sync.WaitGroup
		for i, c := range clusters {
			wg.Add(1)
			go func(i int, c *Cluster) {
				defer wg.Done()
				results[i] = resolveCluster(c, set.FrameLength, opts.Overflow)
			}(i, c)
		}
		wg.Wait()
	} else {
		for i, c := range clusters {
			results[i] = resolveCluster(c, set.FrameLength, opts.Overflow)
		}
	}

	st := &ScheduleTable{
		FrameLength: set.FrameLength,
		placements:  make(map[CoreID][]Placement),
		remaining:   make(map[CoreID]float64),
	}
	for _, r := range results {
		for i, core := range r.key.Cores() {
			st.placements[core] = r.placements[i]
			st.remaining[core] = r.remaining[i]
		}
		st.trace = append(st.trace, r.events...)
	}
	return st
}

type clusterSchedule struct {
	key        ClusterKey
	placements [2][]Placement
	remaining  [2]float64
	events     []Event
}

type sortedLoad struct {
	load   *taskLoad
	seq    int
	u1, u2 float64
}

func resolveCluster(c *Cluster, frameLength float64, policy OverflowPolicy) clusterSchedule {
	cores := c.Key.Cores()
	r := clusterSchedule{
		key:       c.Key,
		remaining: [2]float64{frameLength, frameLength},
	}

	queue := arraylist.New()
	for i, l := range c.loads {
		queue.Add(sortedLoad{load: l, seq: i, u1: l.util[cores[0]], u2: l.util[cores[1]]})
	}
	queue.Sort(byUtilRatio)

	assign := func(side int, s sortedLoad, overflow bool) {
		share := s.load.share(cores[side], frameLength)
		r.remaining[side] -= share
		r.placements[side] = append(r.placements[side], Placement{
			TaskID:   s.load.task.ID,
			Cluster:  c.Key,
			Share:    share,
			Overflow: overflow,
		})
		kind := EventCoreAssigned
		if overflow {
			kind = EventOverflow
		}
		r.events = append(r.events, Event{
			Kind:    kind,
			TaskID:  s.load.task.ID,
			Core:    cores[side],
			Cluster: c.Key,
			Demand:  share,
			Spare:   r.remaining[side],
		})
	}

	// tasks relatively cheaper on the first core, from the front
	for r.remaining[0] > 0 && !queue.Empty() {
		v, _ := queue.Get(0)
		s := v.(sortedLoad)
		if s.u1 > s.u2 {
			break
		}
		queue.Remove(0)
		assign(0, s, false)
	}

	// then from the back onto the second core
	for r.remaining[1] > 0 && !queue.Empty() {
		last := queue.Size() - 1
		v, _ := queue.Get(last)
		queue.Remove(last)
		assign(1, v.(sortedLoad), false)
	}

	for _, v := range queue.Values() {
		side := 0
		if policy == OverflowGreaterCapacity && r.remaining[1] > r.remaining[0] {
			side = 1
		}
		assign(side, v.(sortedLoad), true)
	}

	return r
}

// byUtilRatio sorts by utilization(core1)/utilization(core2), then by the
// order tasks were accepted into the cluster.
func byUtilRatio(a, b any) int {
	sa, sb := a.(sortedLoad), b.(sortedLoad)
	ra, rb := sa.u1/sa.u2, sb.u1/sb.u2
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	case sa.seq < sb.seq:
		return -1
	case sa.seq > sb.seq:
		return 1
	default:
		return 0
	}
}
