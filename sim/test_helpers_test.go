package sim

import (
	"testing"

	"github.com/qnet-sim/qnet-sim/sim/trace"
)

// singleSystemConfig is an M/M/1 queue with no limits.
func singleSystemConfig(lambda, mu, horizon float64, iterations int) *SimulationConfig {
	return &SimulationConfig{
		ArrivalRates: []float64{lambda},
		ServiceRates: []float64{mu},
		Horizon:      horizon,
		Iterations:   iterations,
		Seed:         42,
	}
}

// sharedLimitConfig has two identical systems coupled by one limit with
// coefficients [1, 1].
func sharedLimitConfig(capacity float64, policy AdmissionPolicy) *SimulationConfig {
	return &SimulationConfig{
		ArrivalRates: []float64{1, 1},
		ServiceRates: []float64{1, 1},
		Limits:       []Limit{{MaxCapacity: capacity, Coefficients: []float64{1, 1}}},
		Horizon:      200,
		Iterations:   20,
		Policy:       policy,
		Seed:         7,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

// runTrial runs trial index of cfg with the seed Simulate would use.
func runTrial(t *testing.T, cfg *SimulationConfig, index int, level trace.TraceLevel) *TrialResult {
	t.Helper()
	tr, err := NewTrial(cfg, index, TrialSeed(cfg.Seed, index), level)
	if err != nil {
		t.Fatalf("NewTrial: %v", err)
	}
	res, err := tr.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

// assertConservation checks the job accounting identities of one trial.
func assertConservation(t *testing.T, res *TrialResult) {
	t.Helper()
	for id, s := range res.Systems {
		if s.Admitted != s.Served+s.Interrupted+s.InServiceAtEnd {
			t.Errorf("trial %d system %d: admitted %d != served %d + interrupted %d + in service %d",
				res.Trial, id, s.Admitted, s.Served, s.Interrupted, s.InServiceAtEnd)
		}
		if s.Arrivals+s.Interrupted != s.Admitted+s.Blocked+s.Dropped+s.QueuedAtEnd {
			t.Errorf("trial %d system %d: arrivals %d + interrupted %d != admitted %d + blocked %d + dropped %d + queued %d",
				res.Trial, id, s.Arrivals, s.Interrupted, s.Admitted, s.Blocked, s.Dropped, s.QueuedAtEnd)
		}
		if s.BusyTime < 0 || s.BusyTime > res.EndTime+1e-9 {
			t.Errorf("trial %d system %d: busy time %v outside [0, %v]", res.Trial, id, s.BusyTime, res.EndTime)
		}
		if s.BusyTime+s.Downtime > res.EndTime+1e-9 {
			t.Errorf("trial %d system %d: busy %v + down %v exceeds horizon %v",
				res.Trial, id, s.BusyTime, s.Downtime, res.EndTime)
		}
	}
}
