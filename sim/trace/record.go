// Package trace provides per-trial event logs for the details view.
// It stores pure data types and does not import sim.
package trace

// AdmissionRecord captures a single capacity check of a job about to start service.
type AdmissionRecord struct {
	SystemID int     `json:"system_id"`
	Clock    float64 `json:"clock"`
	Admitted bool    `json:"admitted"`
	Reason   string  `json:"reason"` // "admitted", "limit[k]" for the first violated limit
	Action   string  `json:"action"` // "start", "wait" (queue policy), "blocked" (loss policy)
}

// TransitionRecord captures one state change of a system and the active set
// (IDs of Busy systems) immediately after it.
type TransitionRecord struct {
	Clock    float64 `json:"clock"`
	SystemID int     `json:"system_id"`
	Event    string  `json:"event"` // event kind that caused the transition
	From     string  `json:"from"`
	To       string  `json:"to"`
	Active   []int   `json:"active"`
}
