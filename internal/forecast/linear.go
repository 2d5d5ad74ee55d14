package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// regression solves the normal equations for a linear model over the
// extracted window features, with optional L2 regularisation on every
// coefficient except the intercept. lambda zero gives ordinary least
// squares. The variants differ only in extractor and penalty.
type regression struct {
	name    string
	cfg     Config
	lambda  float64
	extract func(TrainingWindow) []float64
	names   func(lookback int) []string
}

func (r *regression) Name() string { return r.name }

// Fit assembles the design matrix from the windows and solves for the
// coefficients. Deterministic for a fixed window slice. The context is
// observed during assembly and around the solve; an expired deadline
// surfaces as ErrFitTimeout with no partial model.
func (r *regression) Fit(ctx context.Context, windows []TrainingWindow) (*Fitted, error) {
	if len(windows) < r.cfg.MinTrainingSamples {
		return nil, fmt.Errorf("%d training windows, need %d: %w",
			len(windows), r.cfg.MinTrainingSamples, ErrInsufficientData)
	}
	lookback := len(windows[0].Lags)
	names := r.names(lookback)
	p := len(names)

	n := len(windows)
	x := mat.NewDense(n, p+1, nil)
	y := mat.NewVecDense(n, nil)
	for i, w := range windows {
		if err := fitInterrupted(ctx); err != nil {
			return nil, err
		}
		if len(w.Lags) != lookback {
			return nil, fmt.Errorf("window %s period %d has %d lags, expected %d: %w",
				w.Team, w.TargetPeriod, len(w.Lags), lookback, ErrInsufficientData)
		}
		x.Set(i, 0, 1)
		for j, v := range r.extract(w) {
			x.Set(i, j+1, v)
		}
		y.SetVec(i, w.Label)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 1; j <= p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+r.lambda)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	if err := fitInterrupted(ctx); err != nil {
		return nil, err
	}
	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("normal equations not identifiable over %d windows: %w", n, ErrInsufficientData)
	}
	if err := fitInterrupted(ctx); err != nil {
		return nil, err
	}

	coeffs := make([]float64, p)
	for j := 0; j < p; j++ {
		coeffs[j] = beta.AtVec(j + 1)
	}

	residuals := make([]float64, n)
	for i := range windows {
		pred := beta.AtVec(0)
		for j := 0; j < p; j++ {
			pred += coeffs[j] * x.At(i, j+1)
		}
		residuals[i] = y.AtVec(i) - pred
	}

	featureStd := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j+1, x)
		featureStd[j] = stat.StdDev(col, nil)
	}

	return &Fitted{
		Model:       r.name,
		Lookback:    lookback,
		Intercept:   beta.AtVec(0),
		Names:       names,
		Coeffs:      coeffs,
		FeatureStd:  featureStd,
		ResidualStd: stat.StdDev(residuals, nil),
		Samples:     n,
		extract:     r.extract,
	}, nil
}

func fitInterrupted(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("fit aborted: %w", ErrFitTimeout)
	default:
		return err
	}
}

// Fitted is an immutable trained model: the coefficient vector plus the
// training diagnostics needed for intervals and feature importance.
type Fitted struct {
	Model       string
	Lookback    int
	Intercept   float64
	Names       []string
	Coeffs      []float64
	FeatureStd  []float64
	ResidualStd float64
	Samples     int

	extract func(TrainingWindow) []float64
}

// Predict evaluates the fitted function on one window's features. The
// window's own label is never consulted. Residual carries the training
// residual standard deviation as the interval half-width estimate.
func (f *Fitted) Predict(w TrainingWindow) ForecastResult {
	pred := f.Intercept
	for j, v := range f.extract(w) {
		pred += f.Coeffs[j] * v
	}
	return ForecastResult{
		Team:         w.Team,
		Season:       w.Season,
		TargetPeriod: w.TargetPeriod,
		Model:        f.Model,
		Predicted:    pred,
		Residual:     f.ResidualStd,
	}
}

// Importance reports per-feature contribution magnitude: |coefficient|
// scaled by the feature's training standard deviation, normalised to
// sum to one. Features constant in training contribute zero.
func (f *Fitted) Importance() map[string]float64 {
	raw := make([]float64, len(f.Coeffs))
	total := 0.0
	for j, c := range f.Coeffs {
		raw[j] = math.Abs(c) * f.FeatureStd[j]
		total += raw[j]
	}
	out := make(map[string]float64, len(raw))
	for j, name := range f.Names {
		if total > 0 {
			out[name] = raw[j] / total
		} else {
			out[name] = 0
		}
	}
	return out
}
