package cli

import (
	"github.com/spf13/cobra"

	"teamticker/internal/app"
)

var forecastInput string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Fit the configured model and predict next-period returns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Forecast(cmd.Context(), app.ForecastOptions{Input: forecastInput})
	},
}

func init() {
	forecastCmd.Flags().StringVar(&forecastInput, "input", "", "Path to the canonical match CSV (defaults to input.path)")
}
