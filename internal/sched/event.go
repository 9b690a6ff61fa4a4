// internal/sched/event.go

package sched

// EventKind represents the type of placement decision.
type EventKind int

const (
	EventClusterOpened EventKind = iota
	EventTaskPlaced
	EventCandidateRejected
	EventCoreAssigned
	EventOverflow
	EventInfeasible
)

// Event records one decision taken while building or resolving a frame.
type Event struct {
	Kind    EventKind
	TaskID  TaskID
	Core    CoreID
	Cluster ClusterKey
	Demand  float64 // average demand for placement events, share for core events
	Spare   float64 // cluster spare capacity (or core remaining capacity) after the decision
}

func (k EventKind) String() string {
	switch k {
	case EventClusterOpened:
		return "Opened"
	case EventTaskPlaced:
		return "Placed"
	case EventCandidateRejected:
		return "Rejected"
	case EventCoreAssigned:
		return "Assigned"
	case EventOverflow:
		return "Overflow"
	case EventInfeasible:
		return "Infeasible"
	default:
		return "Unknown"
	}
}
