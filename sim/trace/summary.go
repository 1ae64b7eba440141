package trace

// TraceSummary aggregates statistics from a TrialTrace.
type TraceSummary struct {
	TotalDecisions     int
	AdmittedCount      int
	RejectedCount      int
	TotalTransitions   int
	MaxActive          int            // largest active set seen in any transition snapshot
	RejectedByReason   map[string]int // reason → rejected decisions
	TransitionsByEvent map[string]int // event kind → transitions
}

// Summarize computes aggregate statistics from a TrialTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(tt *TrialTrace) *TraceSummary {
	summary := &TraceSummary{
		RejectedByReason:   make(map[string]int),
		TransitionsByEvent: make(map[string]int),
	}
	if tt == nil {
		return summary
	}

	summary.TotalDecisions = len(tt.Admissions)
	for _, a := range tt.Admissions {
		if a.Admitted {
			summary.AdmittedCount++
		} else {
			summary.RejectedCount++
			summary.RejectedByReason[a.Reason]++
		}
	}

	summary.TotalTransitions = len(tt.Transitions)
	for _, tr := range tt.Transitions {
		summary.TransitionsByEvent[tr.Event]++
		if len(tr.Active) > summary.MaxActive {
			summary.MaxActive = len(tr.Active)
		}
	}

	return summary
}
