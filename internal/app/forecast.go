package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"teamticker/internal/evaluate"
	"teamticker/internal/forecast"
	"teamticker/internal/report"
)

// Forecast runs derivation and model fitting, prints the run summary
// and persists the forecasts when a database is configured.
func (a *App) Forecast(ctx context.Context, opts ForecastOptions) error {
	source, err := a.newSource(opts.Input)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(source)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer closeStore()
		if err := a.persist(ctx, store, res); err != nil {
			return err
		}
	}

	fmt.Fprint(os.Stdout, report.RenderRun(res))
	return nil
}

// Evaluate scores forecasts against realized returns. With --run it
// re-scores a persisted run from the database; otherwise it executes a
// fresh in-memory run and reports its holdout evaluation.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions) error {
	cutoff := a.Config.Evaluate.CutoffPeriod
	if cutoff <= 0 {
		return errors.New("evaluate.cutoff_period must be set for evaluation")
	}

	if opts.RunID != uuid.Nil {
		return a.evaluateStoredRun(ctx, opts, cutoff)
	}

	source, err := a.newSource(opts.Input)
	if err != nil {
		return err
	}
	p, err := a.newPipeline(source)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if res.Evaluation == nil {
		return fmt.Errorf("no forecasts beyond cutoff period %d: %w", cutoff, evaluate.ErrNoData)
	}

	fmt.Fprint(os.Stdout, report.RenderEvaluation(*res.Evaluation))
	return nil
}

func (a *App) evaluateStoredRun(ctx context.Context, opts EvaluateOptions, cutoff int) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot evaluate a stored run")
	}
	defer closeStore()

	rows, err := store.ListForecastsByRun(ctx, opts.RunID)
	if err != nil {
		return err
	}

	results := make([]forecast.ForecastResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.ForecastResult())
	}

	rep, err := evaluate.Evaluate(results, cutoff, nil)
	if err != nil {
		return fmt.Errorf("run %s: %w", opts.RunID, err)
	}

	fmt.Fprint(os.Stdout, report.RenderEvaluation(rep))
	return nil
}
