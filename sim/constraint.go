package sim

// Load returns the weighted resource consumption of the active set under lim.
// active[i] is true when system i is Busy.
func Load(lim Limit, active []bool) float64 {
	load := 0.0
	for i, on := range active {
		if on {
			load += lim.Coefficients[i]
		}
	}
	return load
}

// CanAdmit reports whether system candidate may become Busy given the current
// active set. Every limit must satisfy load(active ∪ {candidate}) <= MaxCapacity;
// a load exactly equal to MaxCapacity is admitted. A candidate that is already
// active is counted once. With no limits every candidate is admitted.
//
// CanAdmit is pure: it reads the snapshot and never modifies it.
func CanAdmit(limits []Limit, active []bool, candidate int) bool {
	for _, lim := range limits {
		load := Load(lim, active)
		if !active[candidate] {
			load += lim.Coefficients[candidate]
		}
		if load > lim.MaxCapacity {
			return false
		}
	}
	return true
}

// violatedLimit returns the index of the first limit that rejects candidate,
// or -1 when the candidate is admitted. Used for trace reasons.
func violatedLimit(limits []Limit, active []bool, candidate int) int {
	for i := range limits {
		if !CanAdmit(limits[i:i+1], active, candidate) {
			return i
		}
	}
	return -1
}
