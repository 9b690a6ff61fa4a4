// internal/sched/constructor.go

package sched

import (
	"github.com/emirpasic/gods/sets/hashset"
)

// BuildClusters partitions tasks into core-pair clusters for one frame.
//
// Each step takes the globally cheapest (task, core) candidate that has not
// been rejected for that task. A free core opens a new cluster together with
// the task's next cheapest free core; a core that already belongs to a
// cluster places the task there if the cluster's spare capacity, plus
// tolerance, covers the task's average demand over both cores.
func BuildClusters(tasks []*Task, cores CoreSet, frameLength, tolerance float64) (*ClusterSet, error) {
	if !(frameLength > 0) {
		return nil, invalidf("frame length %g must be positive", frameLength)
	}
	if tolerance < 0 {
		return nil, invalidf("capacity tolerance %g must not be negative", tolerance)
	}
	if err := cores.Validate(tasks); err != nil {
		return nil, err
	}

	set := newClusterSet(frameLength)
	loads := snapshot(tasks)
	placed := make([]bool, len(loads))
	rejected := make([]*hashset.Set, len(loads))
	for i := range rejected {
		rejected[i] = hashset.New()
	}

	reject := func(l *taskLoad, core CoreID, key ClusterKey, demand, spare float64) {
		rejected[l.order].Add(core)
		set.trace = append(set.trace, Event{
			Kind:    EventCandidateRejected,
			TaskID:  l.task.ID,
			Core:    core,
			Cluster: key,
			Demand:  demand,
			Spare:   spare,
		})
	}

	for remaining := len(loads); remaining > 0; {
		l, core, ok := cheapestCandidate(loads, placed, rejected)
		if !ok {
			stuck := firstUnplaced(loads, placed)
			set.trace = append(set.trace, Event{Kind: EventInfeasible, TaskID: stuck.task.ID})
			return nil, &InfeasibleError{FrameLength: frameLength, TaskID: stuck.task.ID}
		}

		if !set.HasCore(core) {
			second, ok := secondCore(l, core, set, cores)
			if !ok {
				reject(l, core, ClusterKey{}, 0, 0)
				continue
			}
			key, err := NewClusterKey(core, second)
			if err != nil {
				return nil, err
			}
			demand := averageDemand(l, key, frameLength)
			if demand < frameLength {
				c := &Cluster{Key: key, SpareCapacity: 2 * frameLength}
				c.accept(l, demand)
				set.add(c)
				placed[l.order] = true
				remaining--
				set.trace = append(set.trace, Event{
					Kind:    EventClusterOpened,
					TaskID:  l.task.ID,
					Core:    core,
					Cluster: key,
					Demand:  demand,
					Spare:   c.SpareCapacity,
				})
				continue
			}
			reject(l, core, key, demand, 2*frameLength)
			continue
		}

		c, err := set.ClusterOf(core)
		if err != nil {
			return nil, err
		}
		demand := averageDemand(l, c.Key, frameLength)
		if demand <= c.SpareCapacity+tolerance {
			c.accept(l, demand)
			placed[l.order] = true
			remaining--
			set.trace = append(set.trace, Event{
				Kind:    EventTaskPlaced,
				TaskID:  l.task.ID,
				Core:    core,
				Cluster: c.Key,
				Demand:  demand,
				Spare:   c.SpareCapacity,
			})
			continue
		}
		reject(l, core, c.Key, demand, c.SpareCapacity)
	}

	return set, nil
}

// cheapestCandidate scans tasks in list order and cores in ascending order,
// so the first pair seen wins any tie.
func cheapestCandidate(loads []*taskLoad, placed []bool, rejected []*hashset.Set) (*taskLoad, CoreID, bool) {
	var (
		best     *taskLoad
		bestCore CoreID
		bestUtil float64
	)
	for i, l := range loads {
		if placed[i] {
			continue
		}
		for c, u := range l.util {
			core := CoreID(c)
			if rejected[i].Contains(core) {
				continue
			}
			if best == nil || u < bestUtil {
				best, bestCore, bestUtil = l, core, u
			}
		}
	}
	return best, bestCore, best != nil
}

// secondCore picks the partner for a new cluster among cores that are still
// free this frame: the smallest utilization strictly above the task's
// minimum, or, when every free core sits at the minimum, the cheapest free
// core. Ties go to the lower core index.
func secondCore(l *taskLoad, first CoreID, set *ClusterSet, cores CoreSet) (CoreID, bool) {
	var (
		strict, loose       CoreID
		strictU, looseU     float64
		haveStrict, haveAny bool
	)
	for _, c := range cores {
		if c == first || set.HasCore(c) {
			continue
		}
		u := l.util[c]
		if u > l.minUtil && (!haveStrict || u < strictU) {
			strict, strictU, haveStrict = c, u, true
		}
		if !haveAny || u < looseU {
			loose, looseU, haveAny = c, u, true
		}
	}
	if haveStrict {
		return strict, true
	}
	return loose, haveAny
}

func averageDemand(l *taskLoad, key ClusterKey, frameLength float64) float64 {
	return (l.share(key.Low, frameLength) + l.share(key.High, frameLength)) / 2
}

func firstUnplaced(loads []*taskLoad, placed []bool) *taskLoad {
	for i, l := range loads {
		if !placed[i] {
			return l
		}
	}
	return nil
}
