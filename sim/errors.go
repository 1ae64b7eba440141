package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a SimulationConfig that cannot be simulated.
	// Always returned wrapped in a *ConfigError naming the offending field.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNumericOverflow marks a variate draw that is non-finite, non-positive,
	// or too small to advance the simulation clock.
	ErrNumericOverflow = errors.New("numeric overflow")

	// ErrEventBudgetExceeded marks a trial that processed more events than
	// SimulationConfig.MaxEventsPerTrial allows.
	ErrEventBudgetExceeded = errors.New("event budget exceeded")
)

// ConfigError identifies the SimulationConfig field that failed validation.
type ConfigError struct {
	Field  string // e.g. "limits[1].coefficients[0]"
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func invalidf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TrialError wraps a failure raised while running a single trial.
type TrialError struct {
	Trial int
	Err   error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d: %v", e.Trial, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }
