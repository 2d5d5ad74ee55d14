package pricing

import (
	"fmt"
	"math"
)

// weightSumTolerance bounds the allowed drift between the configured
// component weights and WeightTotal.
const weightSumTolerance = 1e-9

// Config drives feature normalisation and the price update rule.
type Config struct {
	BaselinePrice    float64            `mapstructure:"baseline_price"`
	FeatureWeights   map[string]float64 `mapstructure:"feature_weights"`
	WeightTotal      float64            `mapstructure:"weight_total"`
	RateClamp        RateClamp          `mapstructure:"rate_clamp"`
	VolatilityWindow int                `mapstructure:"volatility_window"`
	GoalDivisor      float64            `mapstructure:"goal_divisor"`
	XGDivisor        float64            `mapstructure:"xg_divisor"`
	StrengthDivisor  float64            `mapstructure:"strength_divisor"`
	Workers          int                `mapstructure:"workers"`
}

// RateClamp bounds the per-period update rate. Min must stay above -1 so
// prices cannot reach zero.
type RateClamp struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// DefaultConfig returns the stock parameterisation: baseline 100, rate
// clamp of +-15%, six-period volatility window and weights split across
// result, xG differential and opponent strength.
func DefaultConfig() Config {
	return Config{
		BaselinePrice: 100.0,
		FeatureWeights: map[string]float64{
			ComponentResult:        0.5,
			ComponentXGDiff:        0.3,
			ComponentStrengthDelta: 0.2,
		},
		WeightTotal:      1.0,
		RateClamp:        RateClamp{Min: -0.15, Max: 0.15},
		VolatilityWindow: 6,
		GoalDivisor:      3.0,
		XGDivisor:        3.0,
		StrengthDivisor:  2.0,
		Workers:          1,
	}
}

// Validate checks the configuration for values the engine cannot price
// with.
func (c Config) Validate() error {
	if c.BaselinePrice <= 0 || !isFinite(c.BaselinePrice) {
		return fmt.Errorf("baseline_price must be a positive finite number, got %v", c.BaselinePrice)
	}
	if len(c.FeatureWeights) == 0 {
		return fmt.Errorf("feature_weights must not be empty")
	}
	sum := 0.0
	for name, w := range c.FeatureWeights {
		if _, ok := (TeamPeriodFeature{}).Component(name); !ok {
			return fmt.Errorf("feature_weights: unknown component %q", name)
		}
		if !isFinite(w) {
			return fmt.Errorf("feature_weights: component %q has non-finite weight %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-c.WeightTotal) > weightSumTolerance {
		return fmt.Errorf("feature_weights sum to %v, want weight_total %v", sum, c.WeightTotal)
	}
	if !isFinite(c.RateClamp.Min) || !isFinite(c.RateClamp.Max) {
		return fmt.Errorf("rate_clamp bounds must be finite, got [%v, %v]", c.RateClamp.Min, c.RateClamp.Max)
	}
	if c.RateClamp.Min >= c.RateClamp.Max {
		return fmt.Errorf("rate_clamp min %v must be below max %v", c.RateClamp.Min, c.RateClamp.Max)
	}
	if c.RateClamp.Min <= -1 {
		return fmt.Errorf("rate_clamp min %v would allow non-positive prices", c.RateClamp.Min)
	}
	if c.VolatilityWindow < 2 {
		return fmt.Errorf("volatility_window must be at least 2, got %d", c.VolatilityWindow)
	}
	if c.GoalDivisor <= 0 || c.XGDivisor <= 0 || c.StrengthDivisor <= 0 {
		return fmt.Errorf("feature divisors must be positive, got goal=%v xg=%v strength=%v",
			c.GoalDivisor, c.XGDivisor, c.StrengthDivisor)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
