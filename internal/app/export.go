package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"teamticker/internal/storage"
)

// Export renders one team's persisted price series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Team == "" {
		return errors.New("--team is required")
	}
	if opts.Season == 0 {
		return errors.New("--season is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	series, err := store.ListPriceSeries(ctx, opts.Team, opts.Season)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		a.Logger.Info().Str("team", opts.Team).Int("season", opts.Season).Msg("no price rows found for export")
		return nil
	}

	downsampled := downsampleRows(series, opts.MaxPoints)
	a.Logger.Info().Int("total", len(series)).Int("exported", len(downsampled)).Msg("exporting price series")

	if opts.CSVPath != "" {
		if err := writePriceRowsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePriceRowsPNG(opts.PNGPath, opts.Team, opts.Season, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRows(rows []storage.PriceRow, max int) []storage.PriceRow {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]storage.PriceRow, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writePriceRowsCSV(path string, rows []storage.PriceRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"season", "team", "period", "price", "return", "cum_return", "volatility", "degraded", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		volatility := ""
		if row.Volatility != nil {
			volatility = row.Volatility.String()
		}
		record := []string{
			fmt.Sprintf("%d", row.Season),
			row.Team,
			fmt.Sprintf("%d", row.Period),
			row.Price.String(),
			row.Return.String(),
			row.CumReturn.String(),
			volatility,
			fmt.Sprintf("%t", row.Degraded),
			row.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePriceRowsPNG(path, team string, season int, rows []storage.PriceRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	periods := make([]float64, len(rows))
	price := make([]float64, len(rows))
	cumReturn := make([]float64, len(rows))

	for i, row := range rows {
		periods[i] = float64(row.Period)
		price[i] = row.Price.InexactFloat64()
		cumReturn[i] = row.CumReturn.InexactFloat64() * 100
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s season %d", team, season),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name:           "Period",
			ValueFormatter: func(v interface{}) string { return chart.FloatValueFormatterWithFormat(v, "%.0f") },
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Cumulative return (%)",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Price",
				XValues: periods,
				YValues: price,
			},
			chart.ContinuousSeries{
				Name:    "Cumulative return %",
				XValues: periods,
				YValues: cumReturn,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
