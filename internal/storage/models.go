package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"teamticker/internal/forecast"
	"teamticker/internal/pricing"
)

// PriceRow is one persisted price snapshot, stamped with the run that
// derived it. Volatility stays nil for the early periods of a team's
// series where the rolling window is not yet full.
type PriceRow struct {
	RunID      uuid.UUID
	Team       string
	Season     int
	Period     int
	Price      decimal.Decimal
	Return     decimal.Decimal
	CumReturn  decimal.Decimal
	Volatility *decimal.Decimal
	Degraded   bool
	CreatedAt  time.Time
}

// ForecastRow is one persisted point forecast. Realized is nil until
// the target period's outcome is known.
type ForecastRow struct {
	RunID        uuid.UUID
	Team         string
	Season       int
	TargetPeriod int
	Model        string
	Predicted    decimal.Decimal
	Residual     decimal.Decimal
	Realized     *decimal.Decimal
	CreatedAt    time.Time
}

// NewPriceRow converts an engine snapshot for persistence.
func NewPriceRow(runID uuid.UUID, st pricing.PriceState) PriceRow {
	row := PriceRow{
		RunID:     runID,
		Team:      st.Team,
		Season:    st.Season,
		Period:    st.Period,
		Price:     decimal.NewFromFloat(st.Price),
		Return:    decimal.NewFromFloat(st.Return),
		CumReturn: decimal.NewFromFloat(st.CumReturn),
		Degraded:  st.Degraded,
	}
	if st.Volatility != nil {
		v := decimal.NewFromFloat(*st.Volatility)
		row.Volatility = &v
	}
	return row
}

// NewForecastRow converts a forecast result for persistence.
func NewForecastRow(runID uuid.UUID, r forecast.ForecastResult) ForecastRow {
	row := ForecastRow{
		RunID:        runID,
		Team:         r.Team,
		Season:       r.Season,
		TargetPeriod: r.TargetPeriod,
		Model:        r.Model,
		Predicted:    decimal.NewFromFloat(r.Predicted),
		Residual:     decimal.NewFromFloat(r.Residual),
	}
	if r.Realized != nil {
		v := decimal.NewFromFloat(*r.Realized)
		row.Realized = &v
	}
	return row
}

// ForecastResult converts a persisted row back into the in-memory
// shape the evaluator scores.
func (r ForecastRow) ForecastResult() forecast.ForecastResult {
	res := forecast.ForecastResult{
		Team:         r.Team,
		Season:       r.Season,
		TargetPeriod: r.TargetPeriod,
		Model:        r.Model,
		Predicted:    r.Predicted.InexactFloat64(),
		Residual:     r.Residual.InexactFloat64(),
	}
	if r.Realized != nil {
		v := r.Realized.InexactFloat64()
		res.Realized = &v
	}
	return res
}
