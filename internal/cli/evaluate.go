package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"teamticker/internal/app"
)

var (
	evaluateInput string
	evaluateRun   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score forecasts against realized returns on the holdout range",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.EvaluateOptions{Input: evaluateInput}

		if evaluateRun != "" {
			runID, err := uuid.Parse(evaluateRun)
			if err != nil {
				return fmt.Errorf("invalid --run value: %w", err)
			}
			opts.RunID = runID
		}

		return getApp().Evaluate(cmd.Context(), opts)
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateInput, "input", "", "Path to the canonical match CSV (defaults to input.path)")
	evaluateCmd.Flags().StringVar(&evaluateRun, "run", "", "Re-score a persisted run by its id instead of running fresh")
}
