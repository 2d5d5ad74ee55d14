package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Show prints recent persisted price rows.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show price rows")
	}
	if closeStore != nil {
		defer closeStore()
	}

	rows, err := store.ListRecentPrices(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no price rows found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Season\tPeriod\tTeam\tPrice\tReturn%\tCumReturn%\tVolatility\tDegraded")

	for _, row := range rows {
		volatility := ""
		if row.Volatility != nil {
			volatility = formatDecimal(*row.Volatility, 4)
		}
		degraded := ""
		if row.Degraded {
			degraded = "yes"
		}
		fmt.Fprintf(
			writer,
			"%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Season,
			row.Period,
			row.Team,
			formatDecimal(row.Price, 2),
			formatDecimal(row.Return.Mul(hundred), 2),
			formatDecimal(row.CumReturn.Mul(hundred), 2),
			volatility,
			degraded,
		)
	}

	writer.Flush()
	return nil
}
