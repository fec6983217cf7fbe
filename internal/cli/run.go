package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/annobatch/annobatch/internal/config"
	"github.com/annobatch/annobatch/internal/cost"
	"github.com/annobatch/annobatch/internal/engine"
	"github.com/annobatch/annobatch/internal/ingest"
	"github.com/annobatch/annobatch/internal/logging"
	"github.com/annobatch/annobatch/internal/metrics"
	"github.com/annobatch/annobatch/internal/report"
	"github.com/annobatch/annobatch/internal/sim"
)

// runFlags carries the run command's flag values.
type runFlags struct {
	tasksPath   string
	count       int
	concurrency int
	reportJSON  string

	simLatency     time.Duration
	simJitter      time.Duration
	simFailureRate float64
	simSeed        int64
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a batch of annotation tasks",
		Long: "Execute a batch against the simulated annotation provider. " +
			"Tasks come from a YAML manifest (--tasks) or are generated " +
			"synthetically (--count). The batch size is adapted to the " +
			"configured bounds before dispatch.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.tasksPath, "tasks", "", "YAML task manifest path")
	cmd.Flags().IntVar(&flags.count, "count", 10, "number of synthetic tasks when --tasks is not given")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "worker count override (0 = config default)")
	cmd.Flags().StringVar(&flags.reportJSON, "report-json", "", "write the final report snapshot to this file")
	cmd.Flags().DurationVar(&flags.simLatency, "sim-latency", 150*time.Millisecond, "simulated mean call latency")
	cmd.Flags().DurationVar(&flags.simJitter, "sim-jitter", 50*time.Millisecond, "simulated latency jitter")
	cmd.Flags().Float64Var(&flags.simFailureRate, "sim-failure-rate", 0.05, "simulated per-attempt failure probability")
	cmd.Flags().Int64Var(&flags.simSeed, "sim-seed", 0, "simulation seed (0 = time-based)")

	return cmd
}

//nolint:funlen // Linear command body: load, size, execute, report.
func runBatch(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()
	cfg := configFromContext(ctx)

	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.ComponentLogger(logging.FromContext(ctx), "cli")

	manifest, err := loadTasks(flags)
	if err != nil {
		return err
	}
	available := manifest.EngineTasks()

	size := engine.ChooseBatchSize(
		len(available),
		cfg.Batch.MinSize,
		cfg.Batch.MaxSize,
		cfg.Batch.OptimalSize,
	)
	tasks := available[:size]
	if size < len(available) {
		log.Info().
			Int("available", len(available)).
			Int("selected", size).
			Msg("batch size adapted to configured bounds")
	}

	engineCfg := engineConfigFrom(cfg, flags)
	ledger := cost.NewLedger(cost.PriceTable{
		InputPer1K:     cfg.Cost.InputUnitPrice,
		OutputPer1K:    cfg.Cost.OutputUnitPrice,
		AuxiliaryPer1K: cfg.Cost.AuxiliaryUnitPrice,
	})
	tracker := metrics.NewTracker(nil)
	engineCfg.Tracker = tracker
	engineCfg.Ledger = ledger
	engineCfg.OnProgress = func(s engine.Snapshot) {
		log.Info().
			Int("completed", s.Completed).
			Int("failed", s.Failed).
			Int("total", s.Total).
			Float64("throughput_per_sec", s.ThroughputPerSec).
			Float64("success_rate", s.SuccessRate).
			Msg("progress")
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		return err
	}

	workload := sim.New(sim.Config{
		BaseLatency:   flags.simLatency,
		LatencyJitter: flags.simJitter,
		FailureRate:   flags.simFailureRate,
		InputUnits:    1000,
		OutputUnits:   250,
		Seed:          flags.simSeed,
	})

	started := time.Now()
	results, err := eng.ProcessBatch(ctx, tasks, workload.Work)
	if err != nil {
		return fmt.Errorf("batch execution: %w", err)
	}
	totalDuration := time.Since(started)

	rep := report.Build(
		runID,
		tracker.Metrics(len(tasks), engineCfg.Concurrency),
		totalDuration,
		ledger.Cumulative(),
	)

	printResults(cmd, results)
	if err := rep.WriteJSON(cmd.OutOrStdout()); err != nil {
		return err
	}
	for _, tip := range ledger.OptimizationTips() {
		cmd.Printf("tip: %s\n", tip)
	}

	if flags.reportJSON != "" {
		if err := rep.WriteFile(flags.reportJSON); err != nil {
			return err
		}
		log.Info().Str("path", flags.reportJSON).Msg("report snapshot written")
	}

	return nil
}

func loadTasks(flags *runFlags) (*ingest.Manifest, error) {
	if flags.tasksPath != "" {
		return ingest.LoadManifest(flags.tasksPath)
	}
	if flags.count <= 0 {
		return nil, fmt.Errorf("--count must be positive, got %d", flags.count)
	}
	return ingest.Synthetic(flags.count), nil
}

// engineConfigFrom maps file config plus flag overrides onto the engine's
// runtime configuration.
func engineConfigFrom(cfg *config.Config, flags *runFlags) engine.Config {
	concurrency := cfg.Engine.Concurrency
	if flags.concurrency > 0 {
		concurrency = flags.concurrency
	}

	return engine.Config{
		Concurrency: concurrency,
		Retry: engine.RetryPolicy{
			MaxRetries:  cfg.Engine.RetryAttempts,
			BaseDelay:   cfg.Engine.RetryDelay,
			Multiplier:  cfg.Engine.BackoffMultiplier,
			JitterRatio: cfg.Engine.JitterRatio,
		},
		TaskTimeout:    cfg.Engine.TaskTimeout,
		RateLimitDelay: cfg.Engine.RateLimitDelay,
	}
}

func printResults(cmd *cobra.Command, results []engine.Result) {
	var failed int
	for _, res := range results {
		if !res.Succeeded {
			failed++
			cmd.Printf("task %s failed after %d retries: %s\n",
				res.TaskID, res.RetriesUsed, res.Err.Message)
		}
	}
	cmd.Printf("%d/%d tasks succeeded\n", len(results)-failed, len(results))
}
