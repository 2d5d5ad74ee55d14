// Package report renders run summaries and evaluation reports as plain
// text for the CLI.
package report

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"teamticker/internal/evaluate"
	"teamticker/internal/forecast"
	"teamticker/internal/pipeline"
)

// RenderRun formats the outcome of one pipeline run.
func RenderRun(res *pipeline.Result) string {
	builder := strings.Builder{}
	builder.WriteString("[teamticker run]\n")
	builder.WriteString(fmt.Sprintf("Run: %s\n", res.RunID))
	builder.WriteString(fmt.Sprintf("Model: %s\n", res.Model))
	builder.WriteString(fmt.Sprintf("Seasons: %s\n", joinInts(res.Seasons)))
	builder.WriteString(fmt.Sprintf("Teams: %d\n", res.Teams))
	builder.WriteString(fmt.Sprintf("Matches: %d\n", res.Records))
	builder.WriteString(fmt.Sprintf("Price snapshots: %d\n", len(res.Prices)))
	builder.WriteString(fmt.Sprintf("Training windows: %d\n", res.TrainingWindows))
	builder.WriteString(fmt.Sprintf("Holdout forecasts: %d\n", len(res.Forecasts)))

	if res.Evaluation != nil {
		builder.WriteString("\n")
		builder.WriteString(RenderEvaluation(*res.Evaluation))
	}

	if len(res.Next) > 0 {
		builder.WriteString("\nNext-period forecasts:\n")
		builder.WriteString(renderForecastTable(res.Next))
	}

	return builder.String()
}

// RenderEvaluation formats holdout accuracy and feature contributions.
func RenderEvaluation(rep evaluate.Report) string {
	builder := strings.Builder{}
	builder.WriteString("[evaluation]\n")
	builder.WriteString(fmt.Sprintf("Cutoff period: %d\n", rep.Cutoff))
	builder.WriteString(fmt.Sprintf("Scored forecasts: %d\n", rep.Samples))
	builder.WriteString(fmt.Sprintf("MAE: %.6f\n", rep.MAE))
	builder.WriteString(fmt.Sprintf("RMSE: %.6f\n", rep.RMSE))

	if len(rep.Importance) > 0 {
		builder.WriteString("Feature contributions:\n")
		type item struct {
			name  string
			value float64
		}
		items := make([]item, 0, len(rep.Importance))
		for name, v := range rep.Importance {
			items = append(items, item{name, v})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].value != items[j].value {
				return items[i].value > items[j].value
			}
			return items[i].name < items[j].name
		})
		for _, it := range items {
			builder.WriteString(fmt.Sprintf("  %-24s %6.2f%%\n", it.name, it.value*100))
		}
	}

	return builder.String()
}

func renderForecastTable(forecasts []forecast.ForecastResult) string {
	builder := strings.Builder{}
	writer := tabwriter.NewWriter(&builder, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Team\tSeason\tPeriod\tPredicted\t±Residual")
	for _, f := range forecasts {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%+.4f\t%.4f\n",
			f.Team, f.Season, f.TargetPeriod, f.Predicted, f.Residual)
	}
	writer.Flush()
	return builder.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
