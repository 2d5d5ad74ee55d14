package cli

import (
	"github.com/spf13/cobra"

	"teamticker/internal/app"
)

var runInput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: price, forecast and evaluate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{Input: runInput})
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Path to the canonical match CSV (defaults to input.path)")
}
