package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/trace"
)

// writeReport renders the report in the requested format.
func writeReport(w io.Writer, report *sim.AggregateReport, format string) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		// bufio.Writer keeps the first write error and reports it on Flush
		bw := bufio.NewWriter(w)
		writeText(bw, report)
		if report.Trials != nil {
			writeDetails(bw, report.Trials)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return nil
	}
}

func writeText(w io.Writer, r *sim.AggregateReport) {
	fmt.Fprintln(w, "=== Simulation Report ===")
	fmt.Fprintf(w, "Iterations           : %d\n", r.Iterations)
	fmt.Fprintf(w, "Horizon              : %g\n", r.Horizon)
	fmt.Fprintf(w, "Seed                 : %d\n", r.Seed)
	fmt.Fprintf(w, "Arrivals per trial   : %s\n", formatEstimate(r.Arrivals))
	fmt.Fprintf(w, "Served per trial     : %s\n", formatEstimate(r.Served))
	fmt.Fprintf(w, "Lost per trial       : %s\n", formatEstimate(r.Lost))
	fmt.Fprintf(w, "Events per trial     : %s\n", formatEstimate(r.Events))

	for _, s := range r.Systems {
		fmt.Fprintf(w, "\n--- System %d ---\n", s.ID)
		fmt.Fprintf(w, "Utilization          : %s\n", formatEstimate(s.Utilization))
		fmt.Fprintf(w, "Availability         : %s\n", formatEstimate(s.Availability))
		fmt.Fprintf(w, "Mean queue length    : %s\n", formatEstimate(s.MeanQueueLength))
		fmt.Fprintf(w, "Blocking probability : %s\n", formatEstimate(s.BlockingProbability))
		fmt.Fprintf(w, "Arrivals             : %s\n", formatEstimate(s.Arrivals))
		fmt.Fprintf(w, "Served               : %s\n", formatEstimate(s.Served))
		fmt.Fprintf(w, "Blocked              : %s\n", formatEstimate(s.Blocked))
		fmt.Fprintf(w, "Dropped              : %s\n", formatEstimate(s.Dropped))
		fmt.Fprintf(w, "Interrupted          : %s\n", formatEstimate(s.Interrupted))
		fmt.Fprintf(w, "Breakdowns           : %s\n", formatEstimate(s.Breakdowns))
		fmt.Fprintf(w, "Busy time            : %s\n", formatEstimate(s.BusyTime))
		fmt.Fprintf(w, "Downtime             : %s\n", formatEstimate(s.Downtime))
	}

	for _, l := range r.Limits {
		fmt.Fprintf(w, "\n--- Limit %d (max %g) ---\n", l.ID, l.MaxCapacity)
		fmt.Fprintf(w, "Mean load            : %s\n", formatEstimate(l.MeanLoad))
		fmt.Fprintf(w, "Utilization          : %s\n", formatEstimate(l.Utilization))
		fmt.Fprintf(w, "Peak load            : %s\n", formatEstimate(l.PeakLoad))
	}
}

// formatEstimate prints the mean and its 95% interval.
func formatEstimate(e sim.Estimate) string {
	return fmt.Sprintf("%.4f [%.4f, %.4f]", e.Mean, e.Low, e.High)
}

// writeDetails prints the per-trial log.
func writeDetails(w io.Writer, trials []*sim.TrialResult) {
	for _, t := range trials {
		fmt.Fprintf(w, "\n=== Trial %d (seed %d) ===\n", t.Trial, t.Seed)
		fmt.Fprintf(w, "Events: %d  Arrivals: %d  Served: %d  Lost: %d\n",
			t.Events, t.TotalArrivals(), t.TotalServed(), t.TotalLost())
		for id, s := range t.Systems {
			fmt.Fprintf(w, "  system %d: arrivals=%d served=%d blocked=%d dropped=%d interrupted=%d busy=%.4f down=%.4f\n",
				id, s.Arrivals, s.Served, s.Blocked, s.Dropped, s.Interrupted, s.BusyTime, s.Downtime)
		}
		if t.Trace == nil {
			continue
		}
		sum := trace.Summarize(t.Trace)
		fmt.Fprintf(w, "  decisions: %d admitted, %d rejected; max active %d\n",
			sum.AdmittedCount, sum.RejectedCount, sum.MaxActive)
		for _, reason := range sortedKeys(sum.RejectedByReason) {
			fmt.Fprintf(w, "    rejected by %s: %d\n", reason, sum.RejectedByReason[reason])
		}
		for _, tr := range t.Trace.Transitions {
			fmt.Fprintf(w, "  [t=%.6f] system %d %s -> %s on %s, active %v\n",
				tr.Clock, tr.SystemID, tr.From, tr.To, tr.Event, tr.Active)
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
