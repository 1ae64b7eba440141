package trace

// TraceLevel controls the verbosity of per-trial tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures admission decisions only.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelTransitions captures admission decisions and every state
	// transition together with the active-set snapshot after it.
	TraceLevelTransitions TraceLevel = "transitions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelDecisions:   true,
	TraceLevelTransitions: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Enabled reports whether anything is recorded at this level.
func (l TraceLevel) Enabled() bool {
	return l != "" && l != TraceLevelNone
}

// TrialTrace collects the records of one trial.
type TrialTrace struct {
	Level       TraceLevel         `json:"level"`
	Trial       int                `json:"trial"`
	Seed        int64              `json:"seed"`
	Admissions  []AdmissionRecord  `json:"admissions"`
	Transitions []TransitionRecord `json:"transitions,omitempty"`
}

// NewTrialTrace creates a TrialTrace ready for recording.
func NewTrialTrace(level TraceLevel, trial int, seed int64) *TrialTrace {
	return &TrialTrace{
		Level:       level,
		Trial:       trial,
		Seed:        seed,
		Admissions:  make([]AdmissionRecord, 0),
		Transitions: make([]TransitionRecord, 0),
	}
}

// RecordAdmission appends an admission decision record.
func (tt *TrialTrace) RecordAdmission(record AdmissionRecord) {
	tt.Admissions = append(tt.Admissions, record)
}

// RecordTransition appends a state transition record.
// Ignored below TraceLevelTransitions.
func (tt *TrialTrace) RecordTransition(record TransitionRecord) {
	if tt.Level != TraceLevelTransitions {
		return
	}
	tt.Transitions = append(tt.Transitions, record)
}
