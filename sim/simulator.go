// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/qnet-sim/qnet-sim/sim/trace"
)

// Trial is one discrete-event simulation over [0, Horizon]. It holds the
// clock, the event queue, every system's state and the trial's own random
// streams. A Trial shares nothing with other trials and is run by a single
// goroutine.
type Trial struct {
	Clock   float64
	Horizon float64
	// EventQueue has all pending arrivals, completions, repairs and breakdowns
	EventQueue *EventHeap
	Systems    []*SystemState

	cfg      *SimulationConfig
	policy   AdmissionPolicy
	variates *Variates
	budget   int64

	// active[i] is true while system i is Busy; this is the snapshot the
	// constraint checker reads.
	active    []bool
	limitLoad []float64

	result *TrialResult
	trace  *trace.TrialTrace

	nextEventID    uint64
	nextServiceSeq uint64
}

// NewTrial prepares trial number index with its own generator seeded by seed.
// cfg must already be validated; it is read, never modified.
func NewTrial(cfg *SimulationConfig, index int, seed int64, level trace.TraceLevel) (*Trial, error) {
	variates, err := NewVariates(cfg, seed)
	if err != nil {
		return nil, err
	}
	n := cfg.NumSystems()
	t := &Trial{
		Clock:      0,
		Horizon:    cfg.Horizon,
		EventQueue: NewEventHeap(),
		Systems:    make([]*SystemState, n),
		cfg:        cfg,
		policy:     cfg.AdmissionPolicyOrDefault(),
		variates:   variates,
		budget:     cfg.EventBudget(),
		active:     make([]bool, n),
		limitLoad:  make([]float64, len(cfg.Limits)),
		result:     newTrialResult(index, seed, n, len(cfg.Limits)),
	}
	for id := 0; id < n; id++ {
		t.Systems[id] = newSystemState(id, &t.result.Systems[id])
	}
	if level.Enabled() {
		t.trace = trace.NewTrialTrace(level, index, seed)
		t.result.Trace = t.trace
	}
	return t, nil
}

// Run executes the trial until the next event lies beyond the horizon.
func (t *Trial) Run() (*TrialResult, error) {
	if err := t.start(); err != nil {
		return nil, err
	}
	for t.EventQueue.Len() > 0 {
		if t.EventQueue.Peek().Time > t.Horizon {
			break
		}
		ev := t.EventQueue.PopNext()
		if ev.Time < t.Clock {
			panic(fmt.Sprintf("clock went backwards: %v < %v", ev.Time, t.Clock))
		}
		if t.result.Events >= t.budget {
			return nil, fmt.Errorf("trial %d stopped at t=%v after %d events: %w",
				t.result.Trial, t.Clock, t.result.Events, ErrEventBudgetExceeded)
		}
		t.advance(ev.Time)
		t.result.Events++
		logrus.Tracef("[t=%.6f] Executing %s", t.Clock, ev)
		if err := t.apply(ev); err != nil {
			return nil, err
		}
	}
	t.finish()
	logrus.Debugf("trial %d ended: %d events, %d served, %d lost",
		t.result.Trial, t.result.Events, t.result.TotalServed(), t.result.TotalLost())
	return t.result, nil
}

// start schedules the first arrival of every system and, with recovery
// enabled, its first breakdown.
func (t *Trial) start() error {
	for id := range t.Systems {
		d, err := t.variates.NextInterArrival(id)
		if err != nil {
			return err
		}
		if err := t.schedule(EventArrival, id, d, 0); err != nil {
			return err
		}
		if t.cfg.RecoveryEnabled() {
			if err := t.scheduleBreakdown(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// schedule pushes an event delay time units after the current clock.
// The event must land strictly after the clock, otherwise the loop could
// stall on a zero-length step.
func (t *Trial) schedule(kind EventKind, id int, delay float64, seq uint64) error {
	at := t.Clock + delay
	if !(at > t.Clock) || math.IsInf(at, 0) {
		return fmt.Errorf("%s of system %d: delay %v does not advance clock %v: %w",
			kind, id, delay, t.Clock, ErrNumericOverflow)
	}
	t.nextEventID++
	t.EventQueue.Schedule(&Event{Time: at, Kind: kind, SystemID: id, ID: t.nextEventID, Seq: seq})
	return nil
}

func (t *Trial) scheduleBreakdown(id int) error {
	d, err := t.variates.NextTimeToFailure(id)
	if err != nil {
		return err
	}
	return t.schedule(EventBreakdown, id, d, 0)
}

// advance moves the clock to now, integrating every time-weighted observation.
func (t *Trial) advance(now float64) {
	dt := now - t.Clock
	for _, s := range t.Systems {
		s.advance(now)
	}
	if dt > 0 {
		for k := range t.limitLoad {
			t.result.Limits[k].LoadArea += dt * t.limitLoad[k]
		}
	}
	t.Clock = now
}

func (t *Trial) apply(ev *Event) error {
	sys := t.Systems[ev.SystemID]
	switch ev.Kind {
	case EventArrival:
		return t.handleArrival(sys)
	case EventServiceComplete:
		return t.handleServiceComplete(sys, ev.Seq)
	case EventBreakdown:
		return t.handleBreakdown(sys)
	case EventRepair:
		return t.handleRepair(sys)
	default:
		panic(fmt.Sprintf("unknown event kind %q", ev.Kind))
	}
}

func (t *Trial) handleArrival(sys *SystemState) error {
	sys.obs.Arrivals++
	d, err := t.variates.NextInterArrival(sys.ID)
	if err != nil {
		return err
	}
	if err := t.schedule(EventArrival, sys.ID, d, 0); err != nil {
		return err
	}

	if t.cfg.QueueCapacity > 0 && sys.Queue.Len() >= t.cfg.QueueCapacity {
		sys.obs.Dropped++
		logrus.Tracef("[t=%.6f] system %d queue full (%d), arrival dropped", t.Clock, sys.ID, sys.Queue.Len())
		return nil
	}
	sys.Queue.Enqueue(&Job{ArrivalTime: t.Clock})
	return t.tryStart(sys, EventArrival)
}

func (t *Trial) handleServiceComplete(sys *SystemState, seq uint64) error {
	if !sys.completeService(seq) {
		// service was interrupted by a breakdown; the job is back in the queue
		logrus.Tracef("[t=%.6f] stale completion for system %d ignored", t.Clock, sys.ID)
		return nil
	}
	sys.obs.Served++
	t.setActive(sys.ID, false)
	t.recordTransition(sys.ID, EventServiceComplete, StatusBusy, StatusIdle)

	if err := t.tryStart(sys, EventServiceComplete); err != nil {
		return err
	}
	return t.retryWaiting(EventServiceComplete)
}

func (t *Trial) handleBreakdown(sys *SystemState) error {
	d, err := t.variates.NextRecoveryTime(sys.ID)
	if err != nil {
		return err
	}
	if err := t.schedule(EventRepair, sys.ID, d, 0); err != nil {
		return err
	}

	from := sys.Status
	interrupted := sys.breakDown(t.Clock + d)
	sys.obs.Breakdowns++
	if interrupted != nil {
		sys.obs.Interrupted++
		t.setActive(sys.ID, false)
	}
	t.recordTransition(sys.ID, EventBreakdown, from, StatusBroken)
	if interrupted != nil {
		return t.retryWaiting(EventBreakdown)
	}
	return nil
}

func (t *Trial) handleRepair(sys *SystemState) error {
	sys.repair()
	t.recordTransition(sys.ID, EventRepair, StatusBroken, StatusIdle)
	if err := t.scheduleBreakdown(sys.ID); err != nil {
		return err
	}
	return t.tryStart(sys, EventRepair)
}

// tryStart starts the head job of an Idle system if the limits allow it.
// A refused job waits at the head under PolicyQueue; under PolicyLoss it
// is blocked and the next waiting job is tried.
func (t *Trial) tryStart(sys *SystemState, cause EventKind) error {
	for sys.waiting() {
		if CanAdmit(t.cfg.Limits, t.active, sys.ID) {
			d, err := t.variates.NextServiceTime(sys.ID)
			if err != nil {
				return err
			}
			t.nextServiceSeq++
			seq := t.nextServiceSeq
			if err := t.schedule(EventServiceComplete, sys.ID, d, seq); err != nil {
				return err
			}
			sys.startService(t.Clock, d, seq)
			sys.obs.Admitted++
			t.setActive(sys.ID, true)
			t.recordAdmission(sys.ID, true, "admitted", "start")
			t.recordTransition(sys.ID, cause, StatusIdle, StatusBusy)
			return nil
		}

		reason := fmt.Sprintf("limit[%d]", violatedLimit(t.cfg.Limits, t.active, sys.ID))
		if !t.policy.DropsBlocked() {
			t.recordAdmission(sys.ID, false, reason, "wait")
			return nil
		}
		sys.Queue.Dequeue()
		sys.obs.Blocked++
		t.recordAdmission(sys.ID, false, reason, "blocked")
		logrus.Tracef("[t=%.6f] system %d job blocked by %s", t.Clock, sys.ID, reason)
	}
	return nil
}

// retryWaiting offers released capacity to every Idle system with waiting
// jobs, in ascending system ID order.
func (t *Trial) retryWaiting(cause EventKind) error {
	if len(t.cfg.Limits) == 0 {
		return nil
	}
	for _, s := range t.Systems {
		if !s.waiting() {
			continue
		}
		if err := t.tryStart(s, cause); err != nil {
			return err
		}
	}
	return nil
}

// setActive updates the active set and recomputes every limit's load.
func (t *Trial) setActive(id int, on bool) {
	t.active[id] = on
	for k, lim := range t.cfg.Limits {
		load := Load(lim, t.active)
		t.limitLoad[k] = load
		if load > t.result.Limits[k].PeakLoad {
			t.result.Limits[k].PeakLoad = load
		}
	}
}

// finish closes every open interval at the horizon.
func (t *Trial) finish() {
	t.advance(t.Horizon)
	t.result.EndTime = t.Horizon
	for _, s := range t.Systems {
		s.obs.QueuedAtEnd = int64(s.Queue.Len())
		if s.Status == StatusBusy {
			s.obs.InServiceAtEnd = 1
		}
	}
}

// ActiveSet returns the IDs of the currently Busy systems in ascending order.
func (t *Trial) ActiveSet() []int {
	ids := make([]int, 0, len(t.active))
	for id, on := range t.active {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Trial) recordAdmission(id int, admitted bool, reason, action string) {
	if t.trace == nil {
		return
	}
	t.trace.RecordAdmission(trace.AdmissionRecord{
		SystemID: id,
		Clock:    t.Clock,
		Admitted: admitted,
		Reason:   reason,
		Action:   action,
	})
}

func (t *Trial) recordTransition(id int, cause EventKind, from, to Status) {
	if t.trace == nil {
		return
	}
	t.trace.RecordTransition(trace.TransitionRecord{
		Clock:    t.Clock,
		SystemID: id,
		Event:    string(cause),
		From:     string(from),
		To:       string(to),
		Active:   t.ActiveSet(),
	})
}
