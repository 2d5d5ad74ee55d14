package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teamticker/internal/config"
	"teamticker/internal/ingest"
	"teamticker/internal/pipeline"
	"teamticker/internal/report"
	"teamticker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSource(override string) (ingest.Source, error) {
	path := a.Config.Input.Path
	if override != "" {
		path = override
	}
	if path == "" {
		return nil, errors.New("no match table: set input.path or pass --input")
	}
	return ingest.NewCSVReader(path, a.Logger), nil
}

func (a *App) newPipeline(source ingest.Source) (*pipeline.Pipeline, error) {
	return pipeline.New(a.Config, source, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the full pipeline and persists its outputs when a
// database is configured.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	} else {
		defer closeStore()
		if err := a.persist(ctx, store, res); err != nil {
			return err
		}
	}

	fmt.Fprint(os.Stdout, report.RenderRun(res))
	return nil
}

func (a *App) persist(ctx context.Context, store *storage.Store, res *pipeline.Result) error {
	priceRows := make([]storage.PriceRow, 0, len(res.Prices))
	for _, st := range res.Prices {
		priceRows = append(priceRows, storage.NewPriceRow(res.RunID, st))
	}
	if err := store.InsertPriceRows(ctx, priceRows); err != nil {
		return err
	}

	forecastRows := make([]storage.ForecastRow, 0, len(res.Forecasts)+len(res.Next))
	for _, f := range res.Forecasts {
		forecastRows = append(forecastRows, storage.NewForecastRow(res.RunID, f))
	}
	for _, f := range res.Next {
		forecastRows = append(forecastRows, storage.NewForecastRow(res.RunID, f))
	}
	if len(forecastRows) > 0 {
		if err := store.InsertForecasts(ctx, forecastRows); err != nil {
			return err
		}
	}

	a.Logger.Info().
		Str("run_id", res.RunID.String()).
		Int("price_rows", len(priceRows)).
		Int("forecast_rows", len(forecastRows)).
		Msg("run persisted")
	return nil
}

// RunOptions configure a full pipeline run.
type RunOptions struct {
	Input string
}

// PriceOptions configure price derivation.
type PriceOptions struct {
	Input   string
	CSVPath string
}

// ForecastOptions configure the forecast command.
type ForecastOptions struct {
	Input string
}

// EvaluateOptions configure the evaluate command. RunID re-scores a
// persisted run; when zero a fresh in-memory run is evaluated.
type EvaluateOptions struct {
	Input string
	RunID uuid.UUID
}

// ExportOptions hold parameters for exporting a persisted price series.
type ExportOptions struct {
	Team      string
	Season    int
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
