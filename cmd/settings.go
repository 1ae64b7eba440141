package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/qnet-sim/qnet-sim/sim/trace"
)

// envPrefix is prepended to every run setting read from the environment,
// e.g. QNET_WORKERS.
const envPrefix = "QNET"

// Run setting keys. They never change simulated results, except seed.
const (
	keySeed    = "seed"
	keyWorkers = "workers"
	keyLog     = "log"
	keyDetails = "details"
	keyTrace   = "trace"
	keyOutput  = "output"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// runSettings are the execution options of a run.
type runSettings struct {
	Seed       int64
	SeedSet    bool // seed came from a flag or the environment, overriding the model file
	Workers    int
	LogLevel   string
	Details    bool
	TraceLevel trace.TraceLevel
	Output     string
}

func addSettingsFlags(fs *pflag.FlagSet) {
	fs.Int64(keySeed, 42, "Master seed; overrides the model file seed when set")
	fs.Int(keyWorkers, runtime.GOMAXPROCS(0), "Trials run concurrently")
	fs.String(keyLog, "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.Bool(keyDetails, false, "Print per-trial results and their decision logs")
	fs.String(keyTrace, "", "Per-trial record detail in details mode (none, decisions, transitions)")
	fs.String(keyOutput, outputText, "Report format (text, json)")
}

// newSettingsViper layers QNET_* environment variables under the settings flags.
func newSettingsViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{keySeed, keyWorkers, keyLog, keyDetails, keyTrace, keyOutput} {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", key, err)
		}
	}
	return v, nil
}

func loadRunSettings(fs *pflag.FlagSet) (runSettings, error) {
	v, err := newSettingsViper(fs)
	if err != nil {
		return runSettings{}, err
	}
	s := runSettings{
		Seed:       v.GetInt64(keySeed),
		SeedSet:    v.IsSet(keySeed),
		Workers:    v.GetInt(keyWorkers),
		LogLevel:   v.GetString(keyLog),
		Details:    v.GetBool(keyDetails),
		TraceLevel: trace.TraceLevel(v.GetString(keyTrace)),
		Output:     v.GetString(keyOutput),
	}
	if !trace.IsValidTraceLevel(string(s.TraceLevel)) {
		return runSettings{}, fmt.Errorf("unknown trace level %q; valid: none, decisions, transitions", s.TraceLevel)
	}
	if s.Output != outputText && s.Output != outputJSON {
		return runSettings{}, fmt.Errorf("unknown output format %q; valid: text, json", s.Output)
	}
	return s, nil
}
