package sim

import "fmt"

// AdmissionPolicy decides what happens to a job whose service start fails
// the resource constraint check.
type AdmissionPolicy string

const (
	// PolicyQueue keeps the job at the head of its system's queue; it is
	// retried whenever capacity is released.
	PolicyQueue AdmissionPolicy = "queue"
	// PolicyLoss counts the job as blocked and discards it.
	PolicyLoss AdmissionPolicy = "loss"
)

// ValidAdmissionPolicies is the set of recognized admission policy names.
// The empty string selects PolicyQueue.
var ValidAdmissionPolicies = map[string]bool{"": true, "queue": true, "loss": true}

// IsValidAdmissionPolicy returns true if name is a recognized admission policy.
func IsValidAdmissionPolicy(name string) bool {
	return ValidAdmissionPolicies[name]
}

// ParseAdmissionPolicy converts a CLI/YAML name into an AdmissionPolicy.
func ParseAdmissionPolicy(name string) (AdmissionPolicy, error) {
	if !IsValidAdmissionPolicy(name) {
		return "", fmt.Errorf("unknown admission policy %q; valid: queue, loss", name)
	}
	if name == "" {
		return PolicyQueue, nil
	}
	return AdmissionPolicy(name), nil
}

// DropsBlocked reports whether a capacity-blocked job is discarded.
func (p AdmissionPolicy) DropsBlocked() bool {
	return p == PolicyLoss
}
