package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annobatch/annobatch/internal/cost"
	"github.com/annobatch/annobatch/internal/ingest"
)

func newEstimateCmd() *cobra.Command {
	var (
		tasksPath string
		count     int
		avgInput  float64
		avgOutput float64
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Project the cost of a batch before running it",
		Long: "Project batch cost from a task count and average unit " +
			"consumption, priced with the configured unit-price table. " +
			"With --tasks, the count comes from the manifest.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFromContext(cmd.Context())

			if tasksPath != "" {
				manifest, err := ingest.LoadManifest(tasksPath)
				if err != nil {
					return err
				}
				count = len(manifest.Tasks)
			}
			if count <= 0 {
				return fmt.Errorf("task count must be positive, got %d", count)
			}

			ledger := cost.NewLedger(cost.PriceTable{
				InputPer1K:     cfg.Cost.InputUnitPrice,
				OutputPer1K:    cfg.Cost.OutputUnitPrice,
				AuxiliaryPer1K: cfg.Cost.AuxiliaryUnitPrice,
			})

			estimate := ledger.EstimateBatch(count, avgInput, avgOutput)
			cmd.Printf("estimated cost for %d tasks: %.4f\n", count, estimate)
			cmd.Printf("  avg input units:  %.0f\n", avgInput)
			cmd.Printf("  avg output units: %.0f\n", avgOutput)
			return nil
		},
	}

	cmd.Flags().StringVar(&tasksPath, "tasks", "", "YAML task manifest path")
	cmd.Flags().IntVar(&count, "count", 0, "number of tasks to project")
	cmd.Flags().Float64Var(&avgInput, "avg-input", 1000, "average input units per task")
	cmd.Flags().Float64Var(&avgOutput, "avg-output", 250, "average output units per task")

	return cmd
}
