package forecast

import (
	"context"
	"fmt"
	"time"
)

// Model variant names recognised by New.
const (
	ModelLinear = "linear"
	ModelRidge  = "ridge"
	ModelAR     = "ar"
)

// Config drives window construction and model fitting.
type Config struct {
	LookbackLength     int           `mapstructure:"lookback_length"`
	MinTrainingSamples int           `mapstructure:"min_training_samples"`
	Model              string        `mapstructure:"model"`
	RidgeLambda        float64       `mapstructure:"ridge_lambda"`
	FitTimeout         time.Duration `mapstructure:"fit_timeout"`
}

// DefaultConfig returns the stock forecasting parameterisation.
func DefaultConfig() Config {
	return Config{
		LookbackLength:     4,
		MinTrainingSamples: 20,
		Model:              ModelLinear,
		RidgeLambda:        1.0,
		FitTimeout:         30 * time.Second,
	}
}

// Validate checks the configuration for values no model can fit with.
func (c Config) Validate() error {
	if c.LookbackLength < 1 {
		return fmt.Errorf("lookback_length must be at least 1, got %d", c.LookbackLength)
	}
	if c.MinTrainingSamples < 2 {
		return fmt.Errorf("min_training_samples must be at least 2, got %d", c.MinTrainingSamples)
	}
	switch c.Model {
	case ModelLinear, ModelRidge, ModelAR:
	default:
		return fmt.Errorf("model must be one of linear, ridge, ar; got %q", c.Model)
	}
	if c.Model == ModelRidge && c.RidgeLambda <= 0 {
		return fmt.Errorf("ridge_lambda must be positive, got %v", c.RidgeLambda)
	}
	if c.FitTimeout < 0 {
		return fmt.Errorf("fit_timeout cannot be negative, got %v", c.FitTimeout)
	}
	return nil
}

// Model fits a predictive function from training windows to
// next-period returns. Implementations are deterministic for a fixed
// window set and configuration.
type Model interface {
	Name() string
	Fit(ctx context.Context, windows []TrainingWindow) (*Fitted, error)
}

// New selects the configured model variant.
func New(cfg Config) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Model {
	case ModelLinear:
		return &regression{name: ModelLinear, cfg: cfg, extract: TrainingWindow.Features, names: featureNames}, nil
	case ModelRidge:
		return &regression{name: ModelRidge, cfg: cfg, lambda: cfg.RidgeLambda, extract: TrainingWindow.Features, names: featureNames}, nil
	case ModelAR:
		return &regression{name: ModelAR, cfg: cfg, extract: returnFeatures, names: returnNames}, nil
	default:
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}
}

// ForecastResult is one point forecast for a team's target period.
// Realized stays nil until the outcome is known and filled in post hoc.
type ForecastResult struct {
	Team         string
	Season       int
	TargetPeriod int
	Model        string
	Predicted    float64
	Residual     float64
	Realized     *float64
}

// Error returns predicted minus realized.
func (r ForecastResult) Error() (float64, bool) {
	if r.Realized == nil {
		return 0, false
	}
	return r.Predicted - *r.Realized, true
}
