package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// costTask builds a task whose utilization on core c is costs[c]/period.
func costTask(id TaskID, period int64, costs ...float64) *Task {
	return &Task{
		ID:        id,
		Period:    period,
		Costs:     append([]float64(nil), costs...),
		Remaining: period,
	}
}

// clusterWith places tasks on key without going through the constructor.
func clusterWith(t *testing.T, frameLength float64, a, b CoreID, tasks ...*Task) *ClusterSet {
	t.Helper()
	key, err := NewClusterKey(a, b)
	require.NoError(t, err)

	set := newClusterSet(frameLength)
	c := &Cluster{Key: key, SpareCapacity: 2 * frameLength}
	for _, l := range snapshot(tasks) {
		c.accept(l, averageDemand(l, key, frameLength))
	}
	set.add(c)
	return set
}

func coreTaskIDs(st *ScheduleTable, core CoreID) []TaskID {
	var ids []TaskID
	for _, p := range st.Tasks(core) {
		ids = append(ids, p.TaskID)
	}
	return ids
}
