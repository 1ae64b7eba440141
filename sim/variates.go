package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Variates draws the exponential inter-arrival, service, time-to-failure and
// recovery times of one trial. Every (purpose, system) pair has its own
// stream, so changing one system's parameters does not perturb the draws
// of any other stream.
//
// A Variates belongs to exactly one trial and is not safe for concurrent use.
type Variates struct {
	arrivalRates []float64
	serviceRates []float64
	failureRates []float64
	recoveryRate float64 // 0 when recovery is disabled

	arrival []*rand.Rand
	service []*rand.Rand
	failure []*rand.Rand
	repair  []*rand.Rand
}

// NewVariates builds the generator of one trial from its seed.
// Rates are re-checked here so a generator can never be built with a
// zero or negative rate.
func NewVariates(cfg *SimulationConfig, trialSeed int64) (*Variates, error) {
	n := cfg.NumSystems()
	v := &Variates{
		arrivalRates: make([]float64, n),
		serviceRates: make([]float64, n),
		failureRates: make([]float64, n),
		arrival:      make([]*rand.Rand, n),
		service:      make([]*rand.Rand, n),
		failure:      make([]*rand.Rand, n),
		repair:       make([]*rand.Rand, n),
	}
	rng := NewPartitionedRNG(NewSimulationKey(trialSeed))
	for id := 0; id < n; id++ {
		v.arrivalRates[id] = cfg.ArrivalRates[id]
		v.serviceRates[id] = cfg.ServiceRate(id)
		v.failureRates[id] = cfg.FailureRate(id)
		if !isFinitePositive(v.arrivalRates[id]) {
			return nil, invalidf(fmt.Sprintf("arrival_rates[%d]", id), "must be a finite positive number, got %v", v.arrivalRates[id])
		}
		if !isFinitePositive(v.serviceRates[id]) {
			return nil, invalidf(fmt.Sprintf("service_rates[%d]", id), "must be a finite positive number, got %v", v.serviceRates[id])
		}
		v.arrival[id] = rng.ForSubsystem(subsystemArrival(id))
		v.service[id] = rng.ForSubsystem(subsystemService(id))
		if cfg.RecoveryEnabled() {
			if !isFinitePositive(v.failureRates[id]) {
				return nil, invalidf(fmt.Sprintf("failure_rates[%d]", id), "must be a finite positive number, got %v", v.failureRates[id])
			}
			v.failure[id] = rng.ForSubsystem(subsystemFailure(id))
			v.repair[id] = rng.ForSubsystem(subsystemRepair(id))
		}
	}
	if cfg.RecoveryEnabled() {
		v.recoveryRate = *cfg.RecoveryIntensity
		if !isFinitePositive(v.recoveryRate) {
			return nil, invalidf("recovery_intensity", "must be a finite positive number, got %v", v.recoveryRate)
		}
	}
	return v, nil
}

// NextInterArrival returns the time until the next arrival at system id.
func (v *Variates) NextInterArrival(id int) (float64, error) {
	return exponential(v.arrival[id], v.arrivalRates[id], "inter-arrival", id)
}

// NextServiceTime returns the service duration of a job starting at system id.
func (v *Variates) NextServiceTime(id int) (float64, error) {
	return exponential(v.service[id], v.serviceRates[id], "service", id)
}

// NextTimeToFailure returns the time until system id next breaks down.
// Panics if recovery is disabled.
func (v *Variates) NextTimeToFailure(id int) (float64, error) {
	if v.recoveryRate == 0 {
		panic("NextTimeToFailure: recovery is disabled")
	}
	return exponential(v.failure[id], v.failureRates[id], "time-to-failure", id)
}

// NextRecoveryTime returns the repair duration of system id.
// Panics if recovery is disabled.
func (v *Variates) NextRecoveryTime(id int) (float64, error) {
	if v.recoveryRate == 0 {
		panic("NextRecoveryTime: recovery is disabled")
	}
	return exponential(v.repair[id], v.recoveryRate, "recovery", id)
}

// exponential draws Exp(rate). Draws that are not finite and positive
// would stall or corrupt the event loop and are reported as overflow.
func exponential(rng *rand.Rand, rate float64, what string, id int) (float64, error) {
	d := rng.ExpFloat64() / rate
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, fmt.Errorf("%s draw %v for system %d (rate %v): %w", what, d, id, rate, ErrNumericOverflow)
	}
	return d, nil
}
