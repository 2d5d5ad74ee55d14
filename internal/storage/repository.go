package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertPriceRowSQL = `INSERT INTO price_rows (
        run_id,
        team,
        season,
        period,
        price,
        period_return,
        cum_return,
        volatility,
        degraded
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (season, period, team) DO UPDATE
    SET
        run_id        = EXCLUDED.run_id,
        price         = EXCLUDED.price,
        period_return = EXCLUDED.period_return,
        cum_return    = EXCLUDED.cum_return,
        volatility    = EXCLUDED.volatility,
        degraded      = EXCLUDED.degraded;`

	listPriceSeriesSQL = `SELECT
        run_id, team, season, period, price, period_return, cum_return, volatility, degraded, created_at
    FROM price_rows
    WHERE team = $1
      AND season = $2
    ORDER BY period;`

	listRecentPricesSQL = `SELECT
        run_id, team, season, period, price, period_return, cum_return, volatility, degraded, created_at
    FROM price_rows
    ORDER BY season DESC, period DESC, team
    LIMIT $1;`

	countPriceRowsSQL = `SELECT COUNT(*) FROM price_rows;`

	insertForecastSQL = `INSERT INTO forecasts (
        run_id,
        team,
        season,
        target_period,
        model,
        predicted,
        residual,
        realized
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (run_id, season, target_period, team) DO UPDATE
    SET model     = EXCLUDED.model,
        predicted = EXCLUDED.predicted,
        residual  = EXCLUDED.residual,
        realized  = EXCLUDED.realized;`

	listForecastsByRunSQL = `SELECT
        run_id, team, season, target_period, model, predicted, residual, realized, created_at
    FROM forecasts
    WHERE run_id = $1
    ORDER BY season, target_period, team;`
)

// PriceSeriesStore defines operations for price series persistence.
type PriceSeriesStore interface {
	InsertPriceRows(ctx context.Context, rows []PriceRow) error
	ListPriceSeries(ctx context.Context, team string, season int) ([]PriceRow, error)
	ListRecentPrices(ctx context.Context, limit int) ([]PriceRow, error)
	CountPriceRows(ctx context.Context) (int64, error)
}

// ForecastStore defines operations for forecast persistence.
type ForecastStore interface {
	InsertForecasts(ctx context.Context, rows []ForecastRow) error
	ListForecastsByRun(ctx context.Context, runID uuid.UUID) ([]ForecastRow, error)
}

// Store aggregates access to price rows and forecasts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertPriceRows persists a batch of price snapshots, replacing any
// previously derived row for the same (season, period, team).
func (s *Store) InsertPriceRows(ctx context.Context, rows []PriceRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		var volatility interface{}
		if row.Volatility != nil {
			volatility = row.Volatility.String()
		}
		batch.Queue(upsertPriceRowSQL,
			row.RunID.String(),
			row.Team,
			row.Season,
			row.Period,
			row.Price.String(),
			row.Return.String(),
			row.CumReturn.String(),
			volatility,
			row.Degraded,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range rows {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("upsert price row %s season %d period %d: %w",
				rows[i].Team, rows[i].Season, rows[i].Period, execErr)
		}
	}
	return nil
}

// ListPriceSeries returns one team's season in period order.
func (s *Store) ListPriceSeries(ctx context.Context, team string, season int) ([]PriceRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPriceSeriesSQL, team, season)
	if queryErr != nil {
		return nil, fmt.Errorf("list price series: %w", queryErr)
	}
	defer rows.Close()

	series := make([]PriceRow, 0)
	for rows.Next() {
		row, scanErr := scanPriceRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		series = append(series, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return series, nil
}

// ListRecentPrices lists the most recent price rows across all teams.
func (s *Store) ListRecentPrices(ctx context.Context, limit int) ([]PriceRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPricesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent prices: %w", queryErr)
	}
	defer rows.Close()

	out := make([]PriceRow, 0, limit)
	for rows.Next() {
		row, scanErr := scanPriceRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CountPriceRows counts stored price snapshots.
func (s *Store) CountPriceRows(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPriceRowsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count price rows: %w", scanErr)
	}
	return count, nil
}

// InsertForecasts persists a batch of forecasts for a run.
func (s *Store) InsertForecasts(ctx context.Context, rows []ForecastRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		var realized interface{}
		if row.Realized != nil {
			realized = row.Realized.String()
		}
		batch.Queue(insertForecastSQL,
			row.RunID.String(),
			row.Team,
			row.Season,
			row.TargetPeriod,
			row.Model,
			row.Predicted.String(),
			row.Residual.String(),
			realized,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range rows {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("insert forecast %s season %d period %d: %w",
				rows[i].Team, rows[i].Season, rows[i].TargetPeriod, execErr)
		}
	}
	return nil
}

// ListForecastsByRun returns every forecast stamped with the run id.
func (s *Store) ListForecastsByRun(ctx context.Context, runID uuid.UUID) ([]ForecastRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listForecastsByRunSQL, runID.String())
	if queryErr != nil {
		return nil, fmt.Errorf("list forecasts by run: %w", queryErr)
	}
	defer rows.Close()

	out := make([]ForecastRow, 0)
	for rows.Next() {
		var (
			rec          ForecastRow
			runIDStr     string
			predictedStr string
			residualStr  string
			realizedStr  sql.NullString
		)
		if err := rows.Scan(
			&runIDStr,
			&rec.Team,
			&rec.Season,
			&rec.TargetPeriod,
			&rec.Model,
			&predictedStr,
			&residualStr,
			&realizedStr,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.RunID, convErr = uuid.Parse(runIDStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse run id: %w", convErr)
		}
		rec.Predicted, convErr = decimal.NewFromString(predictedStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse predicted: %w", convErr)
		}
		rec.Residual, convErr = decimal.NewFromString(residualStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse residual: %w", convErr)
		}
		if realizedStr.Valid {
			realized, convErr := decimal.NewFromString(realizedStr.String)
			if convErr != nil {
				return nil, fmt.Errorf("parse realized: %w", convErr)
			}
			rec.Realized = &realized
		}

		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanPriceRow(rows pgx.Rows) (PriceRow, error) {
	var (
		rec           PriceRow
		runIDStr      string
		priceStr      string
		returnStr     string
		cumReturnStr  string
		volatilityStr sql.NullString
	)

	if err := rows.Scan(
		&runIDStr,
		&rec.Team,
		&rec.Season,
		&rec.Period,
		&priceStr,
		&returnStr,
		&cumReturnStr,
		&volatilityStr,
		&rec.Degraded,
		&rec.CreatedAt,
	); err != nil {
		return PriceRow{}, err
	}

	var convErr error
	rec.RunID, convErr = uuid.Parse(runIDStr)
	if convErr != nil {
		return PriceRow{}, fmt.Errorf("parse run id: %w", convErr)
	}
	rec.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return PriceRow{}, fmt.Errorf("parse price: %w", convErr)
	}
	rec.Return, convErr = decimal.NewFromString(returnStr)
	if convErr != nil {
		return PriceRow{}, fmt.Errorf("parse return: %w", convErr)
	}
	rec.CumReturn, convErr = decimal.NewFromString(cumReturnStr)
	if convErr != nil {
		return PriceRow{}, fmt.Errorf("parse cum return: %w", convErr)
	}
	if volatilityStr.Valid {
		volatility, convErr := decimal.NewFromString(volatilityStr.String)
		if convErr != nil {
			return PriceRow{}, fmt.Errorf("parse volatility: %w", convErr)
		}
		rec.Volatility = &volatility
	}

	return rec, nil
}
