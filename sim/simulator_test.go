package sim

import (
	"errors"
	"reflect"
	"testing"

	"github.com/qnet-sim/qnet-sim/sim/internal/testutil"
	"github.com/qnet-sim/qnet-sim/sim/trace"
)

func TestTrial_Run_EndsAtHorizonAndConservesJobs(t *testing.T) {
	configs := map[string]*SimulationConfig{
		"mm1":            singleSystemConfig(1, 2, 100, 1),
		"shared queue":   sharedLimitConfig(1, PolicyQueue),
		"shared loss":    sharedLimitConfig(1, PolicyLoss),
		"bounded queue":  func() *SimulationConfig { c := singleSystemConfig(5, 1, 50, 1); c.QueueCapacity = 3; return c }(),
		"with breakdown": func() *SimulationConfig { c := sharedLimitConfig(1, PolicyQueue); c.RecoveryIntensity = floatPtr(0.5); return c }(),
		"loss breakdown": func() *SimulationConfig { c := sharedLimitConfig(1, PolicyLoss); c.RecoveryIntensity = floatPtr(0.5); return c }(),
	}
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				res := runTrial(t, cfg, i, trace.TraceLevelNone)
				if res.EndTime != cfg.Horizon {
					t.Errorf("EndTime = %v, want %v", res.EndTime, cfg.Horizon)
				}
				if res.TotalArrivals() == 0 {
					t.Error("expected arrivals within the horizon")
				}
				assertConservation(t, res)
			}
		})
	}
}

func TestTrial_NoRecovery_NeverBroken(t *testing.T) {
	// GIVEN a config without recovery intensity
	cfg := sharedLimitConfig(1, PolicyQueue)

	// WHEN a trial runs with full tracing
	res := runTrial(t, cfg, 0, trace.TraceLevelTransitions)

	// THEN no system ever enters Broken
	for _, tr := range res.Trace.Transitions {
		if tr.To == string(StatusBroken) || tr.Event == string(EventBreakdown) {
			t.Fatalf("unexpected breakdown transition %+v", tr)
		}
	}
	for id, s := range res.Systems {
		if s.Breakdowns != 0 || s.Downtime != 0 || s.Interrupted != 0 {
			t.Errorf("system %d: breakdowns %d, downtime %v, interrupted %d", id, s.Breakdowns, s.Downtime, s.Interrupted)
		}
	}
}

func TestTrial_SharedLimit_AtMostOneBusy(t *testing.T) {
	for _, policy := range []AdmissionPolicy{PolicyQueue, PolicyLoss} {
		t.Run(string(policy), func(t *testing.T) {
			// GIVEN two systems sharing one unit of capacity
			cfg := sharedLimitConfig(1, policy)

			// WHEN a trial runs with full tracing
			res := runTrial(t, cfg, 0, trace.TraceLevelTransitions)

			// THEN no snapshot ever has more than one active system
			sum := trace.Summarize(res.Trace)
			if sum.MaxActive > 1 {
				t.Errorf("MaxActive = %d, want <= 1", sum.MaxActive)
			}
			if sum.TotalTransitions == 0 {
				t.Error("expected transitions to be recorded")
			}
			if res.Limits[0].PeakLoad > 1 {
				t.Errorf("PeakLoad = %v exceeds capacity", res.Limits[0].PeakLoad)
			}
			if sum.RejectedCount == 0 {
				t.Error("expected some capacity rejections with shared capacity 1")
			}
		})
	}
}

func TestTrial_LossPolicy_BlocksAndDiscards(t *testing.T) {
	// GIVEN the loss policy on a congested shared limit
	cfg := sharedLimitConfig(1, PolicyLoss)

	// WHEN a trial runs
	res := runTrial(t, cfg, 0, trace.TraceLevelDecisions)

	// THEN rejected jobs are counted as blocked and every rejection discards
	if res.Systems[0].Blocked+res.Systems[1].Blocked == 0 {
		t.Fatal("expected blocked jobs under the loss policy")
	}
	blocked := int64(0)
	for _, a := range res.Trace.Admissions {
		if !a.Admitted {
			if a.Action != "blocked" || a.Reason != "limit[0]" {
				t.Errorf("rejection %+v, want action blocked by limit[0]", a)
			}
			blocked++
		}
	}
	if blocked != res.Systems[0].Blocked+res.Systems[1].Blocked {
		t.Errorf("%d blocked decisions, %d blocked jobs", blocked, res.Systems[0].Blocked+res.Systems[1].Blocked)
	}
}

func TestTrial_QueuePolicy_NeverBlocks(t *testing.T) {
	// GIVEN the queue policy on the same congested limit
	cfg := sharedLimitConfig(1, PolicyQueue)

	// WHEN a trial runs
	res := runTrial(t, cfg, 0, trace.TraceLevelDecisions)

	// THEN nothing is discarded and rejections leave the job waiting
	for id, s := range res.Systems {
		if s.Blocked != 0 || s.Dropped != 0 {
			t.Errorf("system %d: blocked %d, dropped %d; want 0", id, s.Blocked, s.Dropped)
		}
	}
	for _, a := range res.Trace.Admissions {
		if !a.Admitted && a.Action != "wait" {
			t.Errorf("rejection %+v, want action wait", a)
		}
	}
}

func TestTrial_UnsatisfiableLimit(t *testing.T) {
	// GIVEN a system whose own coefficient exceeds the capacity
	base := func(policy AdmissionPolicy) *SimulationConfig {
		return &SimulationConfig{
			ArrivalRates: []float64{1},
			Limits:       []Limit{{MaxCapacity: 1, Coefficients: []float64{2}}},
			Horizon:      50,
			Iterations:   1,
			Policy:       policy,
			Seed:         3,
		}
	}

	// WHEN trials run under each policy
	loss := runTrial(t, base(PolicyLoss), 0, trace.TraceLevelNone).Systems[0]
	queue := runTrial(t, base(PolicyQueue), 0, trace.TraceLevelNone).Systems[0]

	// THEN nothing is ever served: loss blocks every arrival, queue holds them all
	if loss.Admitted != 0 || loss.Blocked != loss.Arrivals || loss.QueuedAtEnd != 0 {
		t.Errorf("loss: %+v", loss)
	}
	if queue.Admitted != 0 || queue.QueuedAtEnd != queue.Arrivals || queue.BusyTime != 0 {
		t.Errorf("queue: %+v", queue)
	}
}

func TestTrial_BoundedQueue_DropsOverflow(t *testing.T) {
	// GIVEN an overloaded system with room for 2 waiting jobs
	cfg := singleSystemConfig(10, 1, 100, 1)
	cfg.QueueCapacity = 2

	// WHEN a trial runs
	res := runTrial(t, cfg, 0, trace.TraceLevelNone)

	// THEN arrivals beyond the queue capacity are dropped
	s := res.Systems[0]
	if s.Dropped == 0 {
		t.Error("expected dropped arrivals")
	}
	if s.QueuedAtEnd > 2 {
		t.Errorf("QueuedAtEnd = %d exceeds capacity 2", s.QueuedAtEnd)
	}
	if s.QueueArea > 2*cfg.Horizon {
		t.Errorf("QueueArea = %v, want <= %v", s.QueueArea, 2*cfg.Horizon)
	}
}

func TestTrial_Breakdowns_InterruptAndRecover(t *testing.T) {
	// GIVEN frequent breakdowns with slow repair on a busy system
	cfg := singleSystemConfig(2, 1, 500, 1)
	cfg.FailureRates = []float64{0.2}
	cfg.RecoveryIntensity = floatPtr(0.5)

	// WHEN a trial runs with full tracing
	res := runTrial(t, cfg, 0, trace.TraceLevelTransitions)

	// THEN the system breaks down, loses time and resumes interrupted jobs
	s := res.Systems[0]
	if s.Breakdowns == 0 || s.Downtime == 0 {
		t.Fatalf("breakdowns %d, downtime %v; want both > 0", s.Breakdowns, s.Downtime)
	}
	if s.Interrupted == 0 {
		t.Error("expected interrupted services on a saturated system")
	}
	sum := trace.Summarize(res.Trace)
	if sum.TransitionsByEvent[string(EventBreakdown)] != int(s.Breakdowns) {
		t.Errorf("%d breakdown transitions, %d breakdowns", sum.TransitionsByEvent[string(EventBreakdown)], s.Breakdowns)
	}
	if sum.TransitionsByEvent[string(EventRepair)] < int(s.Breakdowns)-1 {
		t.Errorf("%d repairs for %d breakdowns", sum.TransitionsByEvent[string(EventRepair)], s.Breakdowns)
	}
	assertConservation(t, res)
}

func TestTrial_LimitLoadMatchesBusyTime(t *testing.T) {
	// GIVEN a limit with coefficients [1, 2.5]
	cfg := &SimulationConfig{
		ArrivalRates: []float64{1, 0.5},
		ServiceRates: []float64{1.5, 1},
		Limits:       []Limit{{MaxCapacity: 10, Coefficients: []float64{1, 2.5}}},
		Horizon:      300,
		Iterations:   1,
		Seed:         11,
	}

	// WHEN a trial runs
	res := runTrial(t, cfg, 0, trace.TraceLevelNone)

	// THEN the load integral is the coefficient-weighted busy time
	want := res.Systems[0].BusyTime + 2.5*res.Systems[1].BusyTime
	testutil.AssertFloat64Equal(t, "LoadArea", want, res.Limits[0].LoadArea, 1e-9)
	if res.Limits[0].PeakLoad != 3.5 && res.Limits[0].PeakLoad != 2.5 && res.Limits[0].PeakLoad != 1 {
		t.Errorf("PeakLoad = %v, want a reachable load", res.Limits[0].PeakLoad)
	}
}

func TestTrial_SameSeed_IdenticalResult(t *testing.T) {
	cfg := sharedLimitConfig(1, PolicyLoss)
	cfg.RecoveryIntensity = floatPtr(1)

	a := runTrial(t, cfg, 4, trace.TraceLevelTransitions)
	b := runTrial(t, cfg, 4, trace.TraceLevelTransitions)

	if !reflect.DeepEqual(a, b) {
		t.Error("two runs of the same trial differ")
	}
	c := runTrial(t, cfg, 5, trace.TraceLevelNone)
	if reflect.DeepEqual(a.Systems, c.Systems) {
		t.Error("different trials produced identical observations")
	}
}

func TestTrial_EventBudgetExceeded(t *testing.T) {
	// GIVEN a budget far below the expected event count
	cfg := singleSystemConfig(5, 5, 1000, 1)
	cfg.MaxEventsPerTrial = 100

	tr, err := NewTrial(cfg, 0, TrialSeed(cfg.Seed, 0), trace.TraceLevelNone)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}

	// WHEN the trial runs
	_, err = tr.Run()

	// THEN it stops with ErrEventBudgetExceeded
	if !errors.Is(err, ErrEventBudgetExceeded) {
		t.Errorf("err = %v, want ErrEventBudgetExceeded", err)
	}
}

func TestTrial_TraceDisabled_NoTrace(t *testing.T) {
	res := runTrial(t, singleSystemConfig(1, 2, 10, 1), 0, trace.TraceLevelNone)
	if res.Trace != nil {
		t.Error("expected no trace at level none")
	}
}

func TestTrial_ActiveSet(t *testing.T) {
	tr, err := NewTrial(sharedLimitConfig(2, PolicyQueue), 0, 1, trace.TraceLevelNone)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	tr.setActive(1, true)
	if got := tr.ActiveSet(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("ActiveSet = %v, want [1]", got)
	}
	if tr.limitLoad[0] != 1 {
		t.Errorf("limit load = %v, want 1", tr.limitLoad[0])
	}
}

func TestTrial_Run_LeavesEventsBeyondHorizonQueued(t *testing.T) {
	// GIVEN a single-system trial
	cfg := singleSystemConfig(1, 1, 20, 1)
	tr, err := NewTrial(cfg, 0, TrialSeed(cfg.Seed, 0), trace.TraceLevelNone)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}

	// WHEN it runs to the horizon
	if _, err := tr.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// THEN the first event past the horizon is still pending, not consumed
	next := tr.EventQueue.Peek()
	if next == nil {
		t.Fatal("event queue empty after Run, want the next arrival pending")
	}
	if next.Time <= cfg.Horizon {
		t.Errorf("pending event at t=%v, want > %v", next.Time, cfg.Horizon)
	}
	if tr.Clock != cfg.Horizon {
		t.Errorf("Clock = %v, want %v", tr.Clock, cfg.Horizon)
	}
}
