package sim

import (
	"fmt"
	"math"
)

const (
	// DefaultServiceRate is the service rate of every system when ServiceRates is unset.
	DefaultServiceRate = 1.0
	// DefaultFailureRate is the breakdown rate of every system when recovery is
	// enabled and FailureRates is unset.
	DefaultFailureRate = 0.1
	// DefaultMaxEventsPerTrial bounds a trial when MaxEventsPerTrial is zero.
	DefaultMaxEventsPerTrial int64 = 50_000_000
)

// Limit is a weighted-sum capacity constraint coupling several systems:
// the sum of Coefficients[i] over all Busy systems i must never exceed MaxCapacity.
type Limit struct {
	MaxCapacity  float64   `yaml:"max_capacity"`
	Coefficients []float64 `yaml:"coefficients"` // one per system, non-negative
}

// SimulationConfig is the complete, immutable input of a simulation run.
// Loaded from YAML by cmd, or built directly by library callers.
type SimulationConfig struct {
	ArrivalRates      []float64       `yaml:"arrival_rates"`
	ServiceRates      []float64       `yaml:"service_rates,omitempty"` // nil = DefaultServiceRate for all
	FailureRates      []float64       `yaml:"failure_rates,omitempty"` // nil = DefaultFailureRate for all; used only with recovery
	Limits            []Limit         `yaml:"limits,omitempty"`
	Horizon           float64         `yaml:"horizon"`
	Iterations        int             `yaml:"iterations"`
	RecoveryIntensity *float64        `yaml:"recovery_intensity,omitempty"` // nil disables failure/recovery modeling
	Policy            AdmissionPolicy `yaml:"admission_policy,omitempty"`
	QueueCapacity     int             `yaml:"queue_capacity,omitempty"` // 0 = unbounded
	Seed              int64           `yaml:"seed"`
	MaxEventsPerTrial int64           `yaml:"max_events_per_trial,omitempty"`
}

// NumSystems returns N, the number of queueing systems.
func (c *SimulationConfig) NumSystems() int {
	return len(c.ArrivalRates)
}

// RecoveryEnabled reports whether breakdowns and repairs are modeled.
func (c *SimulationConfig) RecoveryEnabled() bool {
	return c.RecoveryIntensity != nil
}

// ServiceRate returns the service rate of system id.
func (c *SimulationConfig) ServiceRate(id int) float64 {
	if c.ServiceRates == nil {
		return DefaultServiceRate
	}
	return c.ServiceRates[id]
}

// FailureRate returns the breakdown rate of system id.
func (c *SimulationConfig) FailureRate(id int) float64 {
	if c.FailureRates == nil {
		return DefaultFailureRate
	}
	return c.FailureRates[id]
}

// AdmissionPolicyOrDefault returns Policy, or PolicyQueue when unset.
func (c *SimulationConfig) AdmissionPolicyOrDefault() AdmissionPolicy {
	if c.Policy == "" {
		return PolicyQueue
	}
	return c.Policy
}

// EventBudget returns the per-trial event cap.
func (c *SimulationConfig) EventBudget() int64 {
	if c.MaxEventsPerTrial == 0 {
		return DefaultMaxEventsPerTrial
	}
	return c.MaxEventsPerTrial
}

// Validate checks every field of the config. The returned error wraps
// ErrInvalidConfig and names the first offending field.
func (c *SimulationConfig) Validate() error {
	n := c.NumSystems()
	if n == 0 {
		return invalidf("arrival_rates", "at least one system required")
	}
	if err := validateRates("arrival_rates", c.ArrivalRates); err != nil {
		return err
	}
	if c.ServiceRates != nil {
		if len(c.ServiceRates) != n {
			return invalidf("service_rates", "length %d does not match %d systems", len(c.ServiceRates), n)
		}
		if err := validateRates("service_rates", c.ServiceRates); err != nil {
			return err
		}
	}
	if c.FailureRates != nil {
		if len(c.FailureRates) != n {
			return invalidf("failure_rates", "length %d does not match %d systems", len(c.FailureRates), n)
		}
		if err := validateRates("failure_rates", c.FailureRates); err != nil {
			return err
		}
	}
	for i, lim := range c.Limits {
		prefix := fmt.Sprintf("limits[%d]", i)
		if !isFinitePositive(lim.MaxCapacity) {
			return invalidf(prefix+".max_capacity", "must be a finite positive number, got %v", lim.MaxCapacity)
		}
		if len(lim.Coefficients) != n {
			return invalidf(prefix+".coefficients", "length %d does not match %d systems", len(lim.Coefficients), n)
		}
		for j, coef := range lim.Coefficients {
			if math.IsNaN(coef) || math.IsInf(coef, 0) || coef < 0 {
				return invalidf(fmt.Sprintf("%s.coefficients[%d]", prefix, j), "must be a finite non-negative number, got %v", coef)
			}
		}
	}
	if !isFinitePositive(c.Horizon) {
		return invalidf("horizon", "must be a finite positive number, got %v", c.Horizon)
	}
	if c.Iterations <= 0 {
		return invalidf("iterations", "must be positive, got %d", c.Iterations)
	}
	if c.RecoveryIntensity != nil && !isFinitePositive(*c.RecoveryIntensity) {
		return invalidf("recovery_intensity", "must be a finite positive number, got %v", *c.RecoveryIntensity)
	}
	if !IsValidAdmissionPolicy(string(c.Policy)) {
		return invalidf("admission_policy", "unknown policy %q; valid: queue, loss", c.Policy)
	}
	if c.QueueCapacity < 0 {
		return invalidf("queue_capacity", "must be non-negative, got %d", c.QueueCapacity)
	}
	if c.MaxEventsPerTrial < 0 {
		return invalidf("max_events_per_trial", "must be non-negative, got %d", c.MaxEventsPerTrial)
	}
	return nil
}

func validateRates(field string, rates []float64) error {
	for i, r := range rates {
		if !isFinitePositive(r) {
			return invalidf(fmt.Sprintf("%s[%d]", field, i), "must be a finite positive number, got %v", r)
		}
	}
	return nil
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
