package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ConfidenceLevel is the two-sided coverage of every Estimate interval.
const ConfidenceLevel = 0.95

// Estimate summarizes one observation across trials.
type Estimate struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"` // sample variance, 0 for a single trial
	StdErr   float64 `json:"std_err"`
	Low      float64 `json:"low"`  // lower bound of the Student-t interval, clamped at 0
	High     float64 `json:"high"` // upper bound of the Student-t interval
}

// SystemReport holds the estimates for one system.
type SystemReport struct {
	ID int `json:"id"`

	Arrivals    Estimate `json:"arrivals"`
	Admitted    Estimate `json:"admitted"`
	Served      Estimate `json:"served"`
	Blocked     Estimate `json:"blocked"`
	Dropped     Estimate `json:"dropped"`
	Interrupted Estimate `json:"interrupted"`
	Breakdowns  Estimate `json:"breakdowns"`

	BusyTime  Estimate `json:"busy_time"`
	Downtime  Estimate `json:"downtime"`
	QueueArea Estimate `json:"queue_area"`

	QueuedAtEnd    Estimate `json:"queued_at_end"`
	InServiceAtEnd Estimate `json:"in_service_at_end"`

	Utilization         Estimate `json:"utilization"`          // BusyTime / horizon
	Availability        Estimate `json:"availability"`         // 1 - Downtime / horizon
	MeanQueueLength     Estimate `json:"mean_queue_length"`    // QueueArea / horizon
	BlockingProbability Estimate `json:"blocking_probability"` // (Blocked + Dropped) / Arrivals
}

// LimitReport holds the estimates for one limit.
type LimitReport struct {
	ID          int      `json:"id"`
	MaxCapacity float64  `json:"max_capacity"`
	MeanLoad    Estimate `json:"mean_load"`   // time-averaged load
	Utilization Estimate `json:"utilization"` // MeanLoad / MaxCapacity
	PeakLoad    Estimate `json:"peak_load"`
}

// AggregateReport is the final output of a simulation run. It is built once
// by Accumulate and never modified afterwards.
type AggregateReport struct {
	Iterations int     `json:"iterations"`
	Horizon    float64 `json:"horizon"`
	Seed       int64   `json:"seed"`

	Systems []SystemReport `json:"systems"`
	Limits  []LimitReport  `json:"limits"`

	Arrivals Estimate `json:"arrivals"`
	Served   Estimate `json:"served"`
	Lost     Estimate `json:"lost"`
	Events   Estimate `json:"events"`

	// Trials is set only in details mode, ordered by trial index.
	Trials []*TrialResult `json:"trials,omitempty"`
}

// Accumulate reduces per-trial results to an AggregateReport. Results must be
// ordered by trial index; summation follows that order so the report does not
// depend on how trials were scheduled.
func Accumulate(cfg *SimulationConfig, results []*TrialResult) (*AggregateReport, error) {
	if len(results) == 0 {
		return nil, invalidf("iterations", "no trial results to aggregate")
	}
	n, m := cfg.NumSystems(), len(cfg.Limits)
	for i, r := range results {
		if r == nil {
			return nil, fmt.Errorf("aggregate: result %d is missing", i)
		}
		if len(r.Systems) != n || len(r.Limits) != m {
			return nil, fmt.Errorf("aggregate: trial %d has %d systems and %d limits, want %d and %d",
				r.Trial, len(r.Systems), len(r.Limits), n, m)
		}
	}

	horizon := cfg.Horizon
	report := &AggregateReport{
		Iterations: len(results),
		Horizon:    horizon,
		Seed:       cfg.Seed,
		Systems:    make([]SystemReport, n),
		Limits:     make([]LimitReport, m),
	}

	for id := 0; id < n; id++ {
		sys := func(f func(*SystemResult) float64) Estimate {
			return estimateOf(results, func(r *TrialResult) float64 { return f(&r.Systems[id]) })
		}
		report.Systems[id] = SystemReport{
			ID:             id,
			Arrivals:       sys(func(s *SystemResult) float64 { return float64(s.Arrivals) }),
			Admitted:       sys(func(s *SystemResult) float64 { return float64(s.Admitted) }),
			Served:         sys(func(s *SystemResult) float64 { return float64(s.Served) }),
			Blocked:        sys(func(s *SystemResult) float64 { return float64(s.Blocked) }),
			Dropped:        sys(func(s *SystemResult) float64 { return float64(s.Dropped) }),
			Interrupted:    sys(func(s *SystemResult) float64 { return float64(s.Interrupted) }),
			Breakdowns:     sys(func(s *SystemResult) float64 { return float64(s.Breakdowns) }),
			BusyTime:       sys(func(s *SystemResult) float64 { return s.BusyTime }),
			Downtime:       sys(func(s *SystemResult) float64 { return s.Downtime }),
			QueueArea:      sys(func(s *SystemResult) float64 { return s.QueueArea }),
			QueuedAtEnd:    sys(func(s *SystemResult) float64 { return float64(s.QueuedAtEnd) }),
			InServiceAtEnd: sys(func(s *SystemResult) float64 { return float64(s.InServiceAtEnd) }),
			Utilization:    sys(func(s *SystemResult) float64 { return s.BusyTime / horizon }),
			Availability: sys(func(s *SystemResult) float64 {
				return math.Max(0, 1-s.Downtime/horizon)
			}),
			MeanQueueLength: sys(func(s *SystemResult) float64 { return s.QueueArea / horizon }),
			BlockingProbability: sys(func(s *SystemResult) float64 {
				if s.Arrivals == 0 {
					return 0
				}
				return float64(s.Lost()) / float64(s.Arrivals)
			}),
		}
	}

	for k, lim := range cfg.Limits {
		lr := func(f func(*LimitResult) float64) Estimate {
			return estimateOf(results, func(r *TrialResult) float64 { return f(&r.Limits[k]) })
		}
		capacity := lim.MaxCapacity
		report.Limits[k] = LimitReport{
			ID:          k,
			MaxCapacity: capacity,
			MeanLoad:    lr(func(l *LimitResult) float64 { return l.LoadArea / horizon }),
			Utilization: lr(func(l *LimitResult) float64 { return l.LoadArea / horizon / capacity }),
			PeakLoad:    lr(func(l *LimitResult) float64 { return l.PeakLoad }),
		}
	}

	report.Arrivals = estimateOf(results, func(r *TrialResult) float64 { return float64(r.TotalArrivals()) })
	report.Served = estimateOf(results, func(r *TrialResult) float64 { return float64(r.TotalServed()) })
	report.Lost = estimateOf(results, func(r *TrialResult) float64 { return float64(r.TotalLost()) })
	report.Events = estimateOf(results, func(r *TrialResult) float64 { return float64(r.Events) })
	return report, nil
}

func estimateOf(results []*TrialResult, field func(*TrialResult) float64) Estimate {
	xs := make([]float64, len(results))
	for i, r := range results {
		xs[i] = field(r)
	}
	return NewEstimate(xs)
}

// NewEstimate computes the mean, sample variance and Student-t interval of xs.
// Observations are non-negative, so the lower bound is clamped at 0.
// Returns the zero Estimate for empty input.
func NewEstimate(xs []float64) Estimate {
	n := len(xs)
	if n == 0 {
		return Estimate{}
	}
	if n == 1 {
		return Estimate{Mean: xs[0], Low: math.Max(0, xs[0]), High: xs[0]}
	}
	mean, variance := stat.MeanVariance(xs, nil)
	if variance < 0 {
		// rounding on constant input
		variance = 0
	}
	stdErr := math.Sqrt(variance / float64(n))
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(1 - (1-ConfidenceLevel)/2)
	return Estimate{
		Mean:     mean,
		Variance: variance,
		StdErr:   stdErr,
		Low:      math.Max(0, mean-t*stdErr),
		High:     mean + t*stdErr,
	}
}
