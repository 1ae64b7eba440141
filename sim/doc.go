// Package sim provides the Monte-Carlo engine for multi-channel queueing
// networks whose channels share weighted capacity limits.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - system.go: system lifecycle (idle → busy → idle, broken while under repair)
//   - event.go: event kinds and the tie-break order for simultaneous events
//   - simulator.go: the per-trial event loop, admission and breakdown handling
//   - constraint.go: the capacity check every service start goes through
//
// # Architecture
//
// A run is Simulate → Iterations independent Trials → Accumulate:
//   - config.go, errors.go: SimulationConfig, validation and the error taxonomy
//   - rng.go, variates.go: per-trial seeds and per-system exponential streams
//   - admission.go: what happens to a job refused by the capacity check
//   - metrics.go: per-trial observations (TrialResult)
//   - aggregate.go: mean, variance and 95% Student-t intervals across trials
//   - simulate.go, progress.go: validation, the trial worker pool and progress logging
//   - sim/trace/: per-trial admission and transition records for the details view
//
// Trials share nothing but the read-only configuration. Results are stored
// by trial index and reduced in that order, so a report depends only on the
// configuration and seed, never on the number of workers.
package sim
