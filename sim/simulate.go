package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qnet-sim/qnet-sim/sim/trace"
)

// RunConfig controls how a simulation is executed. None of its fields
// change the simulated results.
type RunConfig struct {
	// Workers is the number of trials run concurrently; <= 1 runs them
	// sequentially on the calling goroutine.
	Workers int
	// Details keeps every TrialResult in the report.
	Details bool
	// TraceLevel selects per-trial decision recording in details mode.
	// Empty means transitions when Details is set.
	TraceLevel trace.TraceLevel
}

func (r RunConfig) traceLevel() trace.TraceLevel {
	if !r.Details {
		return trace.TraceLevelNone
	}
	if r.TraceLevel == "" {
		return trace.TraceLevelTransitions
	}
	return r.TraceLevel
}

// Simulate validates cfg, runs cfg.Iterations independent trials and
// aggregates them. Trial i is seeded with TrialSeed(cfg.Seed, i), so the
// report is identical for every Workers value. The first failing trial
// cancels the remaining ones and its error is returned.
//
// cfg is only read; it may be shared by concurrent calls.
func Simulate(ctx context.Context, cfg *SimulationConfig, run RunConfig) (*AggregateReport, error) {
	if cfg == nil {
		return nil, invalidf("config", "nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !trace.IsValidTraceLevel(string(run.TraceLevel)) {
		return nil, fmt.Errorf("unknown trace level %q; valid: none, decisions, transitions", run.TraceLevel)
	}
	level := run.traceLevel()

	n := cfg.Iterations
	results := make([]*TrialResult, n)
	prog := newProgress(n)
	logrus.Infof("simulating %d trials: %d systems, %d limits, horizon %v, policy %s, %d workers",
		n, cfg.NumSystems(), len(cfg.Limits), cfg.Horizon, cfg.AdmissionPolicyOrDefault(), max(run.Workers, 1))

	runOne := func(i int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &TrialError{Trial: i, Err: fmt.Errorf("panic: %v", r)}
			}
		}()
		t, err := NewTrial(cfg, i, TrialSeed(cfg.Seed, i), level)
		if err != nil {
			return &TrialError{Trial: i, Err: err}
		}
		res, err := t.Run()
		if err != nil {
			return &TrialError{Trial: i, Err: err}
		}
		results[i] = res
		prog.trialDone()
		return nil
	}

	if run.Workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runOne(i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(run.Workers)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return runOne(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		// errgroup cancels gctx only on a trial error
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if done := prog.completed(); done != int64(n) {
		return nil, fmt.Errorf("simulate: %d of %d trials completed", done, n)
	}
	report, err := Accumulate(cfg, results)
	if err != nil {
		return nil, err
	}
	if run.Details {
		report.Trials = results
	}
	return report, nil
}
