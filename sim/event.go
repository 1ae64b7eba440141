package sim

import "fmt"

// EventKind identifies what an event does to its system.
type EventKind string

const (
	EventArrival         EventKind = "Arrival"
	EventServiceComplete EventKind = "ServiceComplete"
	EventRepair          EventKind = "Repair"
	EventBreakdown       EventKind = "Breakdown"
)

// EventKindPriority defines ordering for simultaneous events.
// Lower values are processed first.
var EventKindPriority = map[EventKind]int{
	EventArrival:         1,
	EventServiceComplete: 2,
	EventRepair:          3,
	EventBreakdown:       4,
}

// Event is a pending state change of one system. Events are owned by the
// trial's EventHeap until popped, and discarded after processing.
type Event struct {
	Time     float64
	Kind     EventKind
	SystemID int
	ID       uint64 // per-trial creation order, final tie-breaker
	Seq      uint64 // service sequence; meaningful for ServiceComplete only
}

func (e *Event) String() string {
	return fmt.Sprintf("%s(system=%d, t=%.6f, id=%d)", e.Kind, e.SystemID, e.Time, e.ID)
}
