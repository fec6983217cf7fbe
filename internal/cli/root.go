// Package cli wires the annobatch commands: run (execute a batch against
// the simulated workload) and estimate (pre-run cost projection).
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/annobatch/annobatch/internal/config"
	"github.com/annobatch/annobatch/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRootCmd creates the root Cobra command for the annobatch CLI.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "annobatch",
		Short:   "Adaptive parallel batch runner for annotation workloads",
		Long:    "annobatch: dispatch batches of long-latency annotation tasks under bounded concurrency, with pacing, retries, and cost tracking",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			loggingCfg := cfg.Logging
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				loggingCfg.Level = "debug"
			}
			if envLevel := os.Getenv("ANNOBATCH_LOG_LEVEL"); envLevel != "" {
				loggingCfg.Level = envLevel
			}

			// JSON logs when stderr is not a terminal, console otherwise.
			format := loggingCfg.Format
			if !isTerminal(os.Stderr) {
				format = "json"
			}

			logger := logging.New(logging.Config{
				Level:  loggingCfg.Level,
				Format: format,
			})
			ctx := logger.WithContext(cmd.Context())
			ctx = contextWithConfig(ctx, cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", defaultConfigPath(), "path to annobatch config file")
	cmd.AddCommand(newRunCmd(), newEstimateCmd())

	return cmd
}

// defaultConfigPath returns the conventional config location. A missing
// file simply yields the documented defaults.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "annobatch.yaml"
	}
	return home + "/.annobatch/config.yaml"
}

const rootCmdExample = `  # Run 50 synthetic tasks with 8 workers
  annobatch run --count 50 --concurrency 8

  # Run a declared batch and write the report snapshot
  annobatch run --tasks batch.yaml --report-json report.json

  # Project the cost of a 500-task batch before running it
  annobatch estimate --count 500 --avg-input 1200 --avg-output 300`
