package sched

// CoreID identifies one physical core, 0..C-1.
type CoreID int

// CoreSet is the caller-owned, ordered collection of cores a run schedules onto.
type CoreSet []CoreID

// NewCoreSet returns cores 0..n-1.
func NewCoreSet(n int) CoreSet {
	cores := make(CoreSet, n)
	for i := range cores {
		cores[i] = CoreID(i)
	}
	return cores
}

// Validate checks that every task is defined over exactly these cores.
func (cs CoreSet) Validate(tasks []*Task) error {
	if len(cs) < 2 {
		return invalidf("need at least two cores to form a cluster, got %d", len(cs))
	}
	for i, c := range cs {
		if c != CoreID(i) {
			return invalidf("core set must be indexed 0..%d, found core %d at position %d", len(cs)-1, c, i)
		}
	}
	seen := make(map[TaskID]struct{}, len(tasks))
	for _, t := range tasks {
		if t == nil {
			return invalidf("nil task")
		}
		if _, dup := seen[t.ID]; dup {
			return invalidf("task %d already exists", t.ID)
		}
		seen[t.ID] = struct{}{}
		if n := t.CoreCount(); n != len(cs) {
			return invalidf("task %d: defined over %d cores, core set has %d", t.ID, n, len(cs))
		}
	}
	return nil
}
