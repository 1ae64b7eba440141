package sim

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-sim/qnet-sim/sim/internal/testutil"
	"github.com/qnet-sim/qnet-sim/sim/trace"
)

func TestSimulate_MM1_UtilizationMatchesRho(t *testing.T) {
	// GIVEN one system with λ=1, μ=2 and no limits (ρ = 0.5)
	cfg := singleSystemConfig(1, 2, 1000, 50)

	// WHEN simulated
	report, err := Simulate(context.Background(), cfg, RunConfig{Workers: 4})
	require.NoError(t, err)

	// THEN utilization is close to ρ and nothing is lost
	u := report.Systems[0].Utilization
	testutil.AssertInRange(t, "utilization", u.Mean, 0.47, 0.53)
	assert.LessOrEqual(t, u.Low, u.Mean)
	assert.GreaterOrEqual(t, u.High, u.Mean)
	assert.Equal(t, 0.0, report.Lost.Mean)
	// M/M/1 mean number waiting: ρ²/(1-ρ) = 0.5
	testutil.AssertInRange(t, "mean queue length", report.Systems[0].MeanQueueLength.Mean, 0.4, 0.6)
}

func TestSimulate_ZeroIterations_InvalidConfigBeforeAnyTrial(t *testing.T) {
	cfg := singleSystemConfig(1, 2, 100, 0)

	report, err := Simulate(context.Background(), cfg, RunConfig{})

	assert.Nil(t, report)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "err = %v", err)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "iterations", cfgErr.Field)
}

func TestSimulate_NilConfig(t *testing.T) {
	_, err := Simulate(context.Background(), nil, RunConfig{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestSimulate_UnknownTraceLevel(t *testing.T) {
	_, err := Simulate(context.Background(), singleSystemConfig(1, 2, 10, 1), RunConfig{Details: true, TraceLevel: "verbose"})
	assert.Error(t, err)
}

func TestSimulate_FastRecovery_NegligibleDowntime(t *testing.T) {
	// GIVEN recovery intensity 1e6 (mean repair time 1e-6)
	cfg := sharedLimitConfig(1, PolicyQueue)
	cfg.RecoveryIntensity = floatPtr(1e6)

	// WHEN simulated
	report, err := Simulate(context.Background(), cfg, RunConfig{Workers: 2})
	require.NoError(t, err)

	// THEN downtime is effectively zero and availability effectively one
	for _, s := range report.Systems {
		assert.Greater(t, s.Breakdowns.Mean, 0.0)
		assert.Less(t, s.Downtime.Mean, 0.01)
		testutil.AssertInRange(t, "availability", s.Availability.Mean, 0.9999, 1)
	}
}

func TestSimulate_Deterministic_AcrossWorkerCounts(t *testing.T) {
	// GIVEN a config exercising limits, breakdowns and the loss policy
	cfg := sharedLimitConfig(1, PolicyLoss)
	cfg.RecoveryIntensity = floatPtr(2)

	// WHEN simulated sequentially and with several worker counts
	base, err := Simulate(context.Background(), cfg, RunConfig{Workers: 1})
	require.NoError(t, err)
	for _, workers := range []int{0, 2, 3, 16} {
		got, err := Simulate(context.Background(), cfg, RunConfig{Workers: workers})
		require.NoError(t, err)

		// THEN every report is identical
		if !reflect.DeepEqual(base, got) {
			t.Errorf("workers=%d: report differs from sequential run", workers)
		}
	}
}

func TestSimulate_DifferentSeeds_DifferentReports(t *testing.T) {
	a := sharedLimitConfig(1, PolicyQueue)
	b := sharedLimitConfig(1, PolicyQueue)
	b.Seed = a.Seed + 1

	ra, err := Simulate(context.Background(), a, RunConfig{})
	require.NoError(t, err)
	rb, err := Simulate(context.Background(), b, RunConfig{})
	require.NoError(t, err)

	assert.NotEqual(t, ra.Served.Mean, rb.Served.Mean)
}

func TestSimulate_RaisingCapacity_DoesNotRaiseBlocking(t *testing.T) {
	// GIVEN the loss policy on two systems sharing capacity
	blocked := func(capacity float64) float64 {
		cfg := sharedLimitConfig(capacity, PolicyLoss)
		cfg.Iterations = 30
		report, err := Simulate(context.Background(), cfg, RunConfig{Workers: 4})
		require.NoError(t, err)
		return report.Systems[0].Blocked.Mean + report.Systems[1].Blocked.Mean
	}

	// WHEN the shared capacity grows from 1 to 2
	tight, loose := blocked(1), blocked(2)

	// THEN blocking does not increase; with capacity 2 both may always run
	assert.Greater(t, tight, 0.0)
	assert.LessOrEqual(t, loose, tight)
	assert.Equal(t, 0.0, loose)
}

func TestSimulate_ReportFieldsNonNegative(t *testing.T) {
	cfg := &SimulationConfig{
		ArrivalRates: []float64{2, 1, 0.5},
		ServiceRates: []float64{1, 3, 2},
		Limits: []Limit{
			{MaxCapacity: 2, Coefficients: []float64{1, 1, 1}},
			{MaxCapacity: 1.5, Coefficients: []float64{1, 0, 0.5}},
		},
		Horizon:           100,
		Iterations:        10,
		RecoveryIntensity: floatPtr(1),
		QueueCapacity:     5,
		Seed:              123,
	}

	report, err := Simulate(context.Background(), cfg, RunConfig{Workers: 3, Details: true})
	require.NoError(t, err)

	estimates := func(s SystemReport) map[string]Estimate {
		return map[string]Estimate{
			"arrivals": s.Arrivals, "admitted": s.Admitted, "served": s.Served, "blocked": s.Blocked,
			"dropped": s.Dropped, "interrupted": s.Interrupted, "breakdowns": s.Breakdowns,
			"busy": s.BusyTime, "down": s.Downtime, "queue": s.QueueArea,
			"utilization": s.Utilization, "availability": s.Availability,
			"queue length": s.MeanQueueLength, "blocking": s.BlockingProbability,
		}
	}
	for _, s := range report.Systems {
		for name, e := range estimates(s) {
			testutil.AssertNonNegative(t, name+" mean", e.Mean)
			testutil.AssertNonNegative(t, name+" low", e.Low)
			testutil.AssertNonNegative(t, name+" variance", e.Variance)
		}
		assert.LessOrEqual(t, s.BusyTime.Mean, cfg.Horizon)
		assert.LessOrEqual(t, s.Utilization.Mean, 1.0)
		assert.LessOrEqual(t, s.BlockingProbability.Mean, 1.0)
	}
	for _, l := range report.Limits {
		assert.LessOrEqual(t, l.PeakLoad.Mean, l.MaxCapacity)
		assert.LessOrEqual(t, l.Utilization.Mean, 1.0)
	}

	// details mode keeps every trial in order, each conserving jobs
	require.Len(t, report.Trials, cfg.Iterations)
	for i, r := range report.Trials {
		assert.Equal(t, i, r.Trial)
		assert.NotNil(t, r.Trace)
		assertConservation(t, r)
	}
}

func TestSimulate_TrialFailure_FailsRun(t *testing.T) {
	// GIVEN a budget every trial exceeds
	cfg := singleSystemConfig(5, 5, 1000, 8)
	cfg.MaxEventsPerTrial = 50

	for _, workers := range []int{1, 4} {
		// WHEN simulated
		report, err := Simulate(context.Background(), cfg, RunConfig{Workers: workers})

		// THEN the run fails with a TrialError wrapping the budget sentinel
		assert.Nil(t, report)
		assert.True(t, errors.Is(err, ErrEventBudgetExceeded), "workers=%d: err = %v", workers, err)
		var trialErr *TrialError
		assert.True(t, errors.As(err, &trialErr), "workers=%d: err = %v", workers, err)
	}
}

func TestSimulate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := Simulate(ctx, singleSystemConfig(1, 2, 100, 5), RunConfig{Workers: workers})
		assert.True(t, errors.Is(err, context.Canceled), "workers=%d: err = %v", workers, err)
	}
}

func TestRunConfig_TraceLevel(t *testing.T) {
	assert.Equal(t, trace.TraceLevelNone, RunConfig{TraceLevel: trace.TraceLevelTransitions}.traceLevel())
	assert.Equal(t, trace.TraceLevelTransitions, RunConfig{Details: true}.traceLevel())
	assert.Equal(t, trace.TraceLevelDecisions, RunConfig{Details: true, TraceLevel: trace.TraceLevelDecisions}.traceLevel())
}
