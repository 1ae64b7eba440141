package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// SimulationKey uniquely identifies a reproducible random stream family.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemTrial returns the subsystem name used to derive the seed of trial i.
func SubsystemTrial(i int) string {
	return fmt.Sprintf("trial_%d", i)
}

// Per-system stream names inside one trial.
func subsystemArrival(id int) string { return fmt.Sprintf("arrival_%d", id) }
func subsystemService(id int) string { return fmt.Sprintf("service_%d", id) }
func subsystemFailure(id int) string { return fmt.Sprintf("failure_%d", id) }
func subsystemRepair(id int) string  { return fmt.Sprintf("repair_%d", id) }

// TrialSeed derives the seed of trial i from the master seed.
// Seeds depend only on (master, i), never on execution order.
func TrialSeed(master int64, i int) int64 {
	return master ^ fnv1a64(SubsystemTrial(i))
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Each subsystem gets a PCG source whose 128-bit state is the pair
// (key, fnv1a64(subsystemName)), so distinct (key, name) pairs never share
// a stream.
//
// Thread-safety: NOT thread-safe. Each trial owns its own PartitionedRNG.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(p.streamSeed(name)))
	p.subsystems[name] = rng
	return rng
}

// streamSeed returns the PCG seed words of the named subsystem.
func (p *PartitionedRNG) streamSeed(name string) (uint64, uint64) {
	return uint64(p.key), uint64(fnv1a64(name))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
