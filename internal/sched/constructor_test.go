package sched

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func scenarioA() []*Task {
	return []*Task{
		costTask(1, 10, 2, 5), // [0.2, 0.5]
		costTask(2, 10, 3, 1), // [0.3, 0.1]
		costTask(3, 10, 4, 4), // [0.4, 0.4]
	}
}

func TestBuildClusters_SingleClusterHoldsAllTasks(t *testing.T) {
	set, err := BuildClusters(scenarioA(), NewCoreSet(2), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	c := set.Clusters()[0]
	require.Equal(t, ClusterKey{Low: 0, High: 1}, c.Key)
	// cheapest pair first: task 2 on core 1, then task 1 and task 3 on core 0
	require.Equal(t, []TaskID{2, 1, 3}, c.TaskIDs())
	require.InDelta(t, 20-2-3.5-4, c.SpareCapacity, 1e-9)

	var kinds []EventKind
	for _, ev := range set.Trace() {
		kinds = append(kinds, ev.Kind)
	}
	require.Equal(t, []EventKind{EventClusterOpened, EventTaskPlaced, EventTaskPlaced}, kinds)
	require.Equal(t, CoreID(1), set.Trace()[0].Core)
}

func TestBuildClusters_DemandPastCapacityIsInfeasible(t *testing.T) {
	// one [0.9, 0.9] task still fits: 9.5 + 9 <= 20
	tasks := append(scenarioA(), costTask(4, 10, 9, 9))
	set, err := BuildClusters(tasks, NewCoreSet(2), 10, 0)
	require.NoError(t, err)
	require.InDelta(t, 1.5, set.Clusters()[0].SpareCapacity, 1e-9)

	// a second one pushes cumulative demand past 2*frame
	tasks = append(tasks, costTask(5, 10, 9, 9))
	set, err = BuildClusters(tasks, NewCoreSet(2), 10, 0)
	require.Nil(t, set)
	require.ErrorIs(t, err, ErrInfeasibleTaskSet)

	var inf *InfeasibleError
	require.True(t, errors.As(err, &inf))
	require.Equal(t, TaskID(5), inf.TaskID)
	require.Equal(t, 10.0, inf.FrameLength)
}

func TestBuildClusters_ToleranceWidensAcceptance(t *testing.T) {
	tasks := append(scenarioA(), costTask(4, 10, 9, 9), costTask(5, 10, 9, 9))
	set, err := BuildClusters(tasks, NewCoreSet(2), 10, 8)
	require.NoError(t, err)

	c := set.Clusters()[0]
	require.Len(t, c.Tasks, 5)
	require.InDelta(t, -7.5, c.SpareCapacity, 1e-9)
	require.GreaterOrEqual(t, c.SpareCapacity, -8.0)
}

func TestBuildClusters_OpeningRequiresDemandStrictlyBelowFrame(t *testing.T) {
	// average demand exactly equals the frame length on both cores
	_, err := BuildClusters([]*Task{costTask(1, 10, 10, 10)}, NewCoreSet(2), 10, 0)
	require.ErrorIs(t, err, ErrInfeasibleTaskSet)

	set, err := BuildClusters([]*Task{costTask(1, 10, 9.5, 10)}, NewCoreSet(2), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
}

func TestBuildClusters_SecondCoreIsNextCheapest(t *testing.T) {
	set, err := BuildClusters([]*Task{costTask(1, 10, 1, 4, 2, 3)}, NewCoreSet(4), 10, 0)
	require.NoError(t, err)
	require.Equal(t, ClusterKey{Low: 0, High: 2}, set.Clusters()[0].Key)
	require.False(t, set.HasCore(1))
	require.False(t, set.HasCore(3))
}

func TestBuildClusters_SecondCoreTieGoesToLowerIndex(t *testing.T) {
	set, err := BuildClusters([]*Task{costTask(1, 10, 3, 1, 3)}, NewCoreSet(3), 10, 0)
	require.NoError(t, err)
	require.Equal(t, ClusterKey{Low: 0, High: 1}, set.Clusters()[0].Key)
}

func TestBuildClusters_UniformTaskStillOpensCluster(t *testing.T) {
	set, err := BuildClusters([]*Task{costTask(1, 10, 4, 4)}, NewCoreSet(2), 10, 0)
	require.NoError(t, err)
	require.Equal(t, ClusterKey{Low: 0, High: 1}, set.Clusters()[0].Key)
}

func TestBuildClusters_NoFreePartnerRejectsCandidate(t *testing.T) {
	tasks := []*Task{
		costTask(1, 10, 1, 2, 9),
		costTask(2, 10, 9, 9, 1),
	}
	set, err := BuildClusters(tasks, NewCoreSet(3), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	require.Equal(t, []TaskID{1, 2}, set.Clusters()[0].TaskIDs())
	require.False(t, set.HasCore(2))

	var rejected []CoreID
	for _, ev := range set.Trace() {
		if ev.Kind == EventCandidateRejected {
			rejected = append(rejected, ev.Core)
		}
	}
	require.Equal(t, []CoreID{2}, rejected)
}

func TestBuildClusters_CandidateTieGoesToEarlierTask(t *testing.T) {
	tasks := []*Task{
		costTask(1, 10, 2, 3, 5, 5),
		costTask(2, 10, 5, 5, 2, 3),
	}
	set, err := BuildClusters(tasks, NewCoreSet(4), 10, 0)
	require.NoError(t, err)
	require.Equal(t, EventClusterOpened, set.Trace()[0].Kind)
	require.Equal(t, TaskID(1), set.Trace()[0].TaskID)
	require.Equal(t, 2, set.Len())

	owner, err := set.ClusterOf(2)
	require.NoError(t, err)
	require.Equal(t, []TaskID{2}, owner.TaskIDs())
}

func TestBuildClusters_RejectsBadInput(t *testing.T) {
	_, err := BuildClusters(scenarioA(), NewCoreSet(2), 0, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = BuildClusters(scenarioA(), NewCoreSet(2), 10, -1)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = BuildClusters(scenarioA(), NewCoreSet(3), 10, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func randomTasks(rng *rand.Rand, n, cores int, period int64) []*Task {
	tasks := make([]*Task, n)
	for i := range tasks {
		costs := make([]float64, cores)
		for c := range costs {
			costs[c] = 0.5 + rng.Float64()*float64(period)/4
		}
		tasks[i] = costTask(TaskID(i+1), period, costs...)
	}
	return tasks
}

func TestBuildClusters_PartitionCapacityDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const frame = 10.0
	const tolerance = 0.5

	feasible := 0
	for iter := 0; iter < 200; iter++ {
		cores := 2 + 2*rng.Intn(3)
		tasks := randomTasks(rng, 1+rng.Intn(3*cores), cores, 10)

		set, err := BuildClusters(tasks, NewCoreSet(cores), frame, tolerance)
		if err != nil {
			require.ErrorIs(t, err, ErrInfeasibleTaskSet)
			continue
		}
		feasible++

		seen := make(map[TaskID]int)
		usedCores := make(map[CoreID]bool)
		for _, c := range set.Clusters() {
			require.Less(t, int(c.Key.Low), int(c.Key.High))
			require.False(t, usedCores[c.Key.Low])
			require.False(t, usedCores[c.Key.High])
			usedCores[c.Key.Low], usedCores[c.Key.High] = true, true

			demand := 0.0
			for _, l := range snapshot(c.Tasks) {
				demand += averageDemand(l, c.Key, frame)
			}
			require.LessOrEqual(t, demand, 2*frame+tolerance+1e-9)
			require.GreaterOrEqual(t, c.SpareCapacity, -tolerance-1e-9)

			for _, id := range c.TaskIDs() {
				seen[id]++
			}
		}
		require.Len(t, seen, len(tasks))
		for id, n := range seen {
			require.Equal(t, 1, n, "task %d", id)
		}

		again, err := BuildClusters(tasks, NewCoreSet(cores), frame, tolerance)
		require.NoError(t, err)
		require.Equal(t, set.Len(), again.Len())
		for i, c := range set.Clusters() {
			other := again.Clusters()[i]
			require.Equal(t, c.Key, other.Key)
			require.Equal(t, c.TaskIDs(), other.TaskIDs())
			require.Equal(t, c.SpareCapacity, other.SpareCapacity)
		}
	}
	require.Positive(t, feasible)
}
