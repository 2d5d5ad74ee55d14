// Package evaluate scores point forecasts against realized returns on
// the held-out side of the training cutoff.
package evaluate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"teamticker/internal/forecast"
)

// ErrNoData is returned when no forecast survives the cutoff filter.
// An empty evaluation is reported, never coerced to zero error.
var ErrNoData = errors.New("no forecasts to evaluate")

// Report summarises forecast accuracy over one holdout range.
type Report struct {
	Samples    int
	Cutoff     int
	MAE        float64
	RMSE       float64
	Importance map[string]float64
}

// Evaluate scores the forecasts whose target period lies strictly after
// the training cutoff and whose realized return has been filled in.
// fitted may be nil (for example when re-scoring persisted forecasts);
// feature importance is then omitted.
func Evaluate(results []forecast.ForecastResult, cutoff int, fitted *forecast.Fitted) (Report, error) {
	absErrs := make([]float64, 0, len(results))
	sqErrs := make([]float64, 0, len(results))
	for _, r := range results {
		if r.TargetPeriod <= cutoff {
			continue
		}
		diff, ok := r.Error()
		if !ok {
			continue
		}
		absErrs = append(absErrs, math.Abs(diff))
		sqErrs = append(sqErrs, diff*diff)
	}
	if len(absErrs) == 0 {
		return Report{}, fmt.Errorf("cutoff period %d over %d forecasts: %w", cutoff, len(results), ErrNoData)
	}

	rep := Report{
		Samples: len(absErrs),
		Cutoff:  cutoff,
		MAE:     stat.Mean(absErrs, nil),
		RMSE:    math.Sqrt(stat.Mean(sqErrs, nil)),
	}
	if fitted != nil {
		rep.Importance = fitted.Importance()
	}
	return rep, nil
}
