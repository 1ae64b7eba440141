package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/qnet-sim/qnet-sim/sim"
)

// Model flag names. Each overrides the matching model file field when set.
const (
	flagModel             = "model"
	flagArrivalRates      = "arrival-rates"
	flagServiceRates      = "service-rates"
	flagFailureRates      = "failure-rates"
	flagLimit             = "limit"
	flagHorizon           = "horizon"
	flagIterations        = "iterations"
	flagRecoveryIntensity = "recovery-intensity"
	flagAdmissionPolicy   = "admission-policy"
	flagQueueCapacity     = "queue-capacity"
	flagMaxEvents         = "max-events"
)

// addModelFlags registers the model file flag and every model override flag.
func addModelFlags(fs *pflag.FlagSet) {
	fs.String(flagModel, "", "Path to a YAML model file")
	fs.Float64Slice(flagArrivalRates, nil, "Comma-separated arrival rate per system")
	fs.Float64Slice(flagServiceRates, nil, "Comma-separated service rate per system (default 1.0 each)")
	fs.Float64Slice(flagFailureRates, nil, "Comma-separated breakdown rate per system (default 0.1 each, used with --recovery-intensity)")
	fs.StringArray(flagLimit, nil, "Capacity limit as max:c1,c2,... with one coefficient per system (repeatable)")
	fs.Float64(flagHorizon, 1000, "Simulated time per trial")
	fs.Int(flagIterations, 100, "Number of independent trials")
	fs.Float64(flagRecoveryIntensity, 0, "Repair rate; 0 disables breakdowns")
	fs.String(flagAdmissionPolicy, string(sim.PolicyQueue), "What happens to a job refused by a limit (queue, loss)")
	fs.Int(flagQueueCapacity, 0, "Maximum waiting jobs per system; 0 means unbounded")
	fs.Int64(flagMaxEvents, 0, "Per-trial event budget; 0 uses the default")
}

// LoadModel reads a model file. Unknown fields are rejected so typos
// surface as errors instead of silently falling back to defaults.
func LoadModel(path string) (*sim.SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	var cfg sim.SimulationConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing model file %s: %w", path, err)
	}
	return &cfg, nil
}

// buildModel returns the model described by the flags. With --model the file
// is the base and only explicitly set flags override it; without it every
// flag value, defaults included, is used.
func buildModel(fs *pflag.FlagSet) (*sim.SimulationConfig, error) {
	path, err := fs.GetString(flagModel)
	if err != nil {
		return nil, err
	}
	cfg := &sim.SimulationConfig{}
	fromFile := path != ""
	if fromFile {
		if cfg, err = LoadModel(path); err != nil {
			return nil, err
		}
	}
	use := func(name string) bool {
		return !fromFile || fs.Changed(name)
	}

	if use(flagArrivalRates) {
		if cfg.ArrivalRates, err = fs.GetFloat64Slice(flagArrivalRates); err != nil {
			return nil, err
		}
	}
	if fs.Changed(flagServiceRates) {
		if cfg.ServiceRates, err = fs.GetFloat64Slice(flagServiceRates); err != nil {
			return nil, err
		}
	}
	if fs.Changed(flagFailureRates) {
		if cfg.FailureRates, err = fs.GetFloat64Slice(flagFailureRates); err != nil {
			return nil, err
		}
	}
	if fs.Changed(flagLimit) {
		specs, err := fs.GetStringArray(flagLimit)
		if err != nil {
			return nil, err
		}
		cfg.Limits = make([]sim.Limit, 0, len(specs))
		for _, s := range specs {
			lim, err := ParseLimit(s)
			if err != nil {
				return nil, err
			}
			cfg.Limits = append(cfg.Limits, lim)
		}
	}
	if use(flagHorizon) {
		if cfg.Horizon, err = fs.GetFloat64(flagHorizon); err != nil {
			return nil, err
		}
	}
	if use(flagIterations) {
		if cfg.Iterations, err = fs.GetInt(flagIterations); err != nil {
			return nil, err
		}
	}
	if fs.Changed(flagRecoveryIntensity) {
		mu, err := fs.GetFloat64(flagRecoveryIntensity)
		if err != nil {
			return nil, err
		}
		cfg.RecoveryIntensity = nil
		if mu != 0 {
			cfg.RecoveryIntensity = &mu
		}
	}
	if use(flagAdmissionPolicy) {
		name, err := fs.GetString(flagAdmissionPolicy)
		if err != nil {
			return nil, err
		}
		cfg.Policy = sim.AdmissionPolicy(name)
	}
	if use(flagQueueCapacity) {
		if cfg.QueueCapacity, err = fs.GetInt(flagQueueCapacity); err != nil {
			return nil, err
		}
	}
	if use(flagMaxEvents) {
		if cfg.MaxEventsPerTrial, err = fs.GetInt64(flagMaxEvents); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ParseLimit parses "max:c1,c2,..." into a Limit, e.g. "2:1,1,0.5".
func ParseLimit(s string) (sim.Limit, error) {
	maxPart, coefPart, ok := strings.Cut(s, ":")
	if !ok {
		return sim.Limit{}, fmt.Errorf("limit %q: expected max:c1,c2,...", s)
	}
	maxCap, err := strconv.ParseFloat(strings.TrimSpace(maxPart), 64)
	if err != nil {
		return sim.Limit{}, fmt.Errorf("limit %q: max capacity: %w", s, err)
	}
	fields := strings.Split(coefPart, ",")
	coefs := make([]float64, 0, len(fields))
	for i, f := range fields {
		c, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return sim.Limit{}, fmt.Errorf("limit %q: coefficient %d: %w", s, i, err)
		}
		coefs = append(coefs, c)
	}
	return sim.Limit{MaxCapacity: maxCap, Coefficients: coefs}, nil
}
