package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/qnet-sim/qnet-sim/sim"
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qnet-sim",
	Short: "Monte-Carlo simulator for capacity-constrained queueing networks",
}

// runCmd simulates the model given by --model and the override flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Monte-Carlo simulation and print the report",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSimulation(cmd.Context(), cmd.Flags(), cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// validateCmd checks a model without simulating it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a model file and the override flags",
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateModel(cmd.Flags(), cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Invalid model: %v", err)
		}
	},
}

func runSimulation(ctx context.Context, fs *pflag.FlagSet, out io.Writer) error {
	settings, err := loadRunSettings(fs)
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", settings.LogLevel)
	}
	logrus.SetLevel(level)

	cfg, err := buildModel(fs)
	if err != nil {
		return err
	}
	if settings.SeedSet || !fs.Changed(flagModel) {
		cfg.Seed = settings.Seed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logrus.Infof("Starting simulation: %d systems, %d limits, horizon=%g, iterations=%d, seed=%d",
		cfg.NumSystems(), len(cfg.Limits), cfg.Horizon, cfg.Iterations, cfg.Seed)
	startTime := time.Now()

	report, err := sim.Simulate(ctx, cfg, sim.RunConfig{
		Workers:    settings.Workers,
		Details:    settings.Details,
		TraceLevel: settings.TraceLevel,
	})
	if err != nil {
		return err
	}
	logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	return writeReport(out, report, settings.Output)
}

func validateModel(fs *pflag.FlagSet, out io.Writer) error {
	cfg, err := buildModel(fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "ok: %d systems, %d limits, policy %s\n",
		cfg.NumSystems(), len(cfg.Limits), cfg.AdmissionPolicyOrDefault())
	return err
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	addModelFlags(runCmd.Flags())
	addSettingsFlags(runCmd.Flags())
	addModelFlags(validateCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
