package cli

import (
	"github.com/spf13/cobra"

	"teamticker/internal/app"
)

var (
	priceInput   string
	priceCSVPath string
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Derive per-team price series without fitting a model",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PriceOptions{
			Input:   priceInput,
			CSVPath: priceCSVPath,
		}
		return getApp().Price(cmd.Context(), opts)
	},
}

func init() {
	priceCmd.Flags().StringVar(&priceInput, "input", "", "Path to the canonical match CSV (defaults to input.path)")
	priceCmd.Flags().StringVar(&priceCSVPath, "csv", "", "Write the full series to this CSV file instead of printing")
}
