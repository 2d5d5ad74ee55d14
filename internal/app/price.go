package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"teamticker/internal/pricing"
)

// Price derives the per-team price series without fitting a model. The
// series is written to --csv when given, otherwise each team's latest
// snapshot is printed.
func (a *App) Price(ctx context.Context, opts PriceOptions) error {
	source, err := a.newSource(opts.Input)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(source)
	if err != nil {
		return err
	}

	prices, err := p.Prices(ctx)
	if err != nil {
		return err
	}

	if opts.CSVPath != "" {
		return writePriceStatesCSV(opts.CSVPath, prices)
	}

	// Latest snapshot per (season, team), in input order.
	latest := make(map[string]pricing.PriceState)
	var order []string
	for _, st := range prices {
		key := fmt.Sprintf("%d/%s", st.Season, st.Team)
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = st
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Season\tTeam\tPeriod\tPrice\tCumReturn%\tVolatility")
	for _, key := range order {
		st := latest[key]
		fmt.Fprintf(writer, "%d\t%s\t%d\t%.2f\t%+.2f\t%s\n",
			st.Season, st.Team, st.Period, st.Price, st.CumReturn*100, formatVolatility(st.Volatility))
	}
	return writer.Flush()
}

func writePriceStatesCSV(path string, prices []pricing.PriceState) error {
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

	header := []string{"season", "team", "period", "price", "return", "cum_return", "volatility", "degraded"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, st := range prices {
		record := []string{
			strconv.Itoa(st.Season),
			st.Team,
			strconv.Itoa(st.Period),
			strconv.FormatFloat(st.Price, 'f', -1, 64),
			strconv.FormatFloat(st.Return, 'f', -1, 64),
			strconv.FormatFloat(st.CumReturn, 'f', -1, 64),
			formatVolatility(st.Volatility),
			strconv.FormatBool(st.Degraded),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func formatVolatility(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
