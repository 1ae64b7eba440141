// Tracks per-trial observations: job counts, busy time, downtime and
// time-weighted queue lengths per system, and load per limit.

package sim

import "github.com/qnet-sim/qnet-sim/sim/trace"

// SystemResult holds the observations of one system over one trial.
// Durations are in simulated time units and never exceed the horizon.
type SystemResult struct {
	Arrivals    int64 `json:"arrivals"`    // jobs that arrived
	Admitted    int64 `json:"admitted"`    // service starts (a restarted job counts again)
	Served      int64 `json:"served"`      // service completions
	Blocked     int64 `json:"blocked"`     // jobs discarded by a failed capacity check (loss policy)
	Dropped     int64 `json:"dropped"`     // arrivals that found the queue full
	Interrupted int64 `json:"interrupted"` // services cut short by a breakdown
	Breakdowns  int64 `json:"breakdowns"`

	BusyTime  float64 `json:"busy_time"`  // time spent Busy
	Downtime  float64 `json:"downtime"`   // time spent Broken
	QueueArea float64 `json:"queue_area"` // integral of the number of waiting jobs over time

	QueuedAtEnd    int64 `json:"queued_at_end"`     // jobs waiting at the horizon
	InServiceAtEnd int64 `json:"in_service_at_end"` // 1 if a job was in service at the horizon
}

// Lost returns the jobs that left without service.
func (r *SystemResult) Lost() int64 {
	return r.Blocked + r.Dropped
}

// LimitResult holds the observations of one limit over one trial.
type LimitResult struct {
	LoadArea float64 `json:"load_area"` // integral of the weighted load over time
	PeakLoad float64 `json:"peak_load"`
}

// TrialResult holds every observation of one trial.
type TrialResult struct {
	Trial   int     `json:"trial"`
	Seed    int64   `json:"seed"`
	EndTime float64 `json:"end_time"` // always the horizon for a completed trial
	Events  int64   `json:"events"`   // events processed

	Systems []SystemResult `json:"systems"`
	Limits  []LimitResult  `json:"limits"`

	Trace *trace.TrialTrace `json:"trace,omitempty"` // nil unless tracing is enabled
}

func newTrialResult(trial int, seed int64, numSystems, numLimits int) *TrialResult {
	return &TrialResult{
		Trial:   trial,
		Seed:    seed,
		Systems: make([]SystemResult, numSystems),
		Limits:  make([]LimitResult, numLimits),
	}
}

// TotalArrivals sums arrivals over all systems.
func (r *TrialResult) TotalArrivals() int64 {
	var n int64
	for i := range r.Systems {
		n += r.Systems[i].Arrivals
	}
	return n
}

// TotalServed sums service completions over all systems.
func (r *TrialResult) TotalServed() int64 {
	var n int64
	for i := range r.Systems {
		n += r.Systems[i].Served
	}
	return n
}

// TotalLost sums blocked and dropped jobs over all systems.
func (r *TrialResult) TotalLost() int64 {
	var n int64
	for i := range r.Systems {
		n += r.Systems[i].Lost()
	}
	return n
}
