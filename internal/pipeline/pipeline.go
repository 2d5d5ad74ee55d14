// Package pipeline wires the derivation stages together: match records
// in, price series, forecasts and an evaluation report out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teamticker/internal/config"
	"teamticker/internal/evaluate"
	"teamticker/internal/forecast"
	"teamticker/internal/ingest"
	"teamticker/internal/pricing"
)

// Pipeline orchestrates one batch run over a canonical match table.
type Pipeline struct {
	cfg    *config.Config
	source ingest.Source
	model  forecast.Model
	logger zerolog.Logger
}

// New constructs a pipeline over the given record source.
func New(cfg *config.Config, source ingest.Source, logger zerolog.Logger) (*Pipeline, error) {
	model, err := forecast.New(cfg.Forecast)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		model:  model,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Result carries everything one run produced. Prices are ordered by
// season, then team, then period. Forecasts is the scored holdout set
// with realized returns filled in; Next holds the unrealized
// next-period forecasts for the most recent season.
type Result struct {
	RunID           uuid.UUID
	Model           string
	Seasons         []int
	Teams           int
	Records         int
	TrainingWindows int
	Prices          []pricing.PriceState
	Forecasts       []forecast.ForecastResult
	Next            []forecast.ForecastResult
	Fitted          *forecast.Fitted
	Evaluation      *evaluate.Report
}

// derived is the priced state of every season, ready for windowing.
type derived struct {
	seasons  []int
	prices   []pricing.PriceState
	builders map[int]*forecast.Builder
	teams    map[string]struct{}
	records  int
}

// Prices derives the price series only, without fitting a model.
func (p *Pipeline) Prices(ctx context.Context) ([]pricing.PriceState, error) {
	d, err := p.derive(ctx)
	if err != nil {
		return nil, err
	}
	return d.prices, nil
}

// Run executes the full pipeline: derive, window, fit, predict,
// evaluate. With a zero evaluation cutoff every window trains the model
// and no holdout is scored.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	d, err := p.derive(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := p.cfg.Evaluate.CutoffPeriod
	var train, score []forecast.TrainingWindow
	for _, season := range d.seasons {
		for w := range d.builders[season].Windows() {
			if cutoff > 0 && w.TargetPeriod > cutoff {
				score = append(score, w)
			} else {
				train = append(train, w)
			}
		}
	}
	p.logger.Info().
		Int("train_windows", len(train)).
		Int("holdout_windows", len(score)).
		Int("cutoff_period", cutoff).
		Msg("windows assembled")

	fitCtx := ctx
	if p.cfg.Forecast.FitTimeout > 0 {
		var cancel context.CancelFunc
		fitCtx, cancel = context.WithTimeout(ctx, p.cfg.Forecast.FitTimeout)
		defer cancel()
	}
	fitted, err := p.model.Fit(fitCtx, train)
	if err != nil {
		return nil, fmt.Errorf("fit %s model: %w", p.model.Name(), err)
	}

	forecasts := make([]forecast.ForecastResult, 0, len(score))
	for _, w := range score {
		res := fitted.Predict(w)
		realized := w.Label
		res.Realized = &realized
		forecasts = append(forecasts, res)
	}

	result := &Result{
		RunID:           uuid.New(),
		Model:           p.model.Name(),
		Seasons:         d.seasons,
		Teams:           len(d.teams),
		Records:         d.records,
		TrainingWindows: len(train),
		Prices:          d.prices,
		Forecasts:       forecasts,
		Next:            p.nextForecasts(d, fitted),
		Fitted:          fitted,
	}

	if cutoff > 0 {
		rep, err := evaluate.Evaluate(forecasts, cutoff, fitted)
		switch {
		case errors.Is(err, evaluate.ErrNoData):
			p.logger.Warn().Int("cutoff_period", cutoff).Msg("no holdout forecasts to evaluate")
		case err != nil:
			return nil, err
		default:
			result.Evaluation = &rep
		}
	}

	p.logger.Info().
		Str("run_id", result.RunID.String()).
		Str("model", result.Model).
		Int("forecasts", len(result.Forecasts)).
		Msg("pipeline run complete")
	return result, nil
}

// derive prices every season in period order. Seasons are independent:
// each gets a fresh engine, so prices reset to the baseline at season
// boundaries.
func (p *Pipeline) derive(ctx context.Context) (*derived, error) {
	records, err := p.source.Records(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("match table is empty")
	}

	bySeason := make(map[int][]pricing.MatchRecord)
	for _, rec := range records {
		bySeason[rec.Season] = append(bySeason[rec.Season], rec)
	}
	seasons := make([]int, 0, len(bySeason))
	for season := range bySeason {
		seasons = append(seasons, season)
	}
	slices.Sort(seasons)

	d := &derived{
		seasons:  seasons,
		builders: make(map[int]*forecast.Builder, len(seasons)),
		teams:    make(map[string]struct{}),
		records:  len(records),
	}

	for _, season := range seasons {
		recs := bySeason[season]
		slices.SortStableFunc(recs, func(a, b pricing.MatchRecord) int { return a.Period - b.Period })

		feats := make([]pricing.TeamPeriodFeature, 0, 2*len(recs))
		featsByTeam := make(map[string][]pricing.TeamPeriodFeature)
		for _, rec := range recs {
			home, away, err := pricing.Expand(rec, p.cfg.Pricing)
			if err != nil {
				return nil, err
			}
			feats = append(feats, home, away)
			featsByTeam[home.Team] = append(featsByTeam[home.Team], home)
			featsByTeam[away.Team] = append(featsByTeam[away.Team], away)
		}

		engine := pricing.NewEngine(season, p.cfg.Pricing)
		if err := engine.ApplyAll(ctx, feats); err != nil {
			return nil, fmt.Errorf("season %d: %w", season, err)
		}

		builder := forecast.NewBuilder(p.cfg.Forecast.LookbackLength)
		for _, team := range engine.Teams() {
			d.teams[team] = struct{}{}
			states, err := engine.History(team)
			if err != nil {
				return nil, err
			}
			d.prices = append(d.prices, states...)

			teamFeats := featsByTeam[team]
			points := make([]forecast.Point, len(states))
			for i := range states {
				points[i] = forecast.Point{Feature: teamFeats[i], State: states[i]}
			}
			if err := builder.AddSeries(team, points); err != nil {
				return nil, fmt.Errorf("season %d: %w", season, err)
			}
		}
		d.builders[season] = builder

		p.logger.Debug().
			Int("season", season).
			Int("matches", len(recs)).
			Int("teams", len(engine.Teams())).
			Msg("season priced")
	}

	return d, nil
}

// nextForecasts predicts the upcoming period for every team in the
// most recent season with enough history. Teams short on history are
// skipped, not failed.
func (p *Pipeline) nextForecasts(d *derived, fitted *forecast.Fitted) []forecast.ForecastResult {
	latest := d.seasons[len(d.seasons)-1]
	builder := d.builders[latest]

	teams := make([]string, 0, len(d.teams))
	for team := range d.teams {
		teams = append(teams, team)
	}
	slices.Sort(teams)

	var out []forecast.ForecastResult
	for _, team := range teams {
		w, err := builder.Next(team)
		if errors.Is(err, forecast.ErrInsufficientHistory) {
			p.logger.Debug().Str("team", team).Int("season", latest).Msg("skipping next-period forecast")
			continue
		}
		if err != nil {
			continue
		}
		out = append(out, fitted.Predict(w))
	}
	return out
}
