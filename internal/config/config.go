package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"teamticker/internal/forecast"
	"teamticker/internal/logging"
	"teamticker/internal/pricing"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Logging  logging.Config  `mapstructure:"logging"`
	Database DatabaseConfig  `mapstructure:"database"`
	Input    InputConfig     `mapstructure:"input"`
	Pricing  pricing.Config  `mapstructure:"pricing"`
	Forecast forecast.Config `mapstructure:"forecast"`
	Evaluate EvaluateConfig  `mapstructure:"evaluate"`
	Export   ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// InputConfig points at the canonical match table.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// EvaluateConfig governs the train/holdout split. A cutoff of zero
// disables holdout scoring.
type EvaluateConfig struct {
	CutoffPeriod int `mapstructure:"cutoff_period"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TEAMTICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "teamticker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	pricingDefaults := pricing.DefaultConfig()
	v.SetDefault("pricing.baseline_price", pricingDefaults.BaselinePrice)
	v.SetDefault("pricing.feature_weights", pricingDefaults.FeatureWeights)
	v.SetDefault("pricing.weight_total", pricingDefaults.WeightTotal)
	v.SetDefault("pricing.rate_clamp.min", pricingDefaults.RateClamp.Min)
	v.SetDefault("pricing.rate_clamp.max", pricingDefaults.RateClamp.Max)
	v.SetDefault("pricing.volatility_window", pricingDefaults.VolatilityWindow)
	v.SetDefault("pricing.goal_divisor", pricingDefaults.GoalDivisor)
	v.SetDefault("pricing.xg_divisor", pricingDefaults.XGDivisor)
	v.SetDefault("pricing.strength_divisor", pricingDefaults.StrengthDivisor)
	v.SetDefault("pricing.workers", pricingDefaults.Workers)

	forecastDefaults := forecast.DefaultConfig()
	v.SetDefault("forecast.lookback_length", forecastDefaults.LookbackLength)
	v.SetDefault("forecast.min_training_samples", forecastDefaults.MinTrainingSamples)
	v.SetDefault("forecast.model", forecastDefaults.Model)
	v.SetDefault("forecast.ridge_lambda", forecastDefaults.RidgeLambda)
	v.SetDefault("forecast.fit_timeout", "30s")

	v.SetDefault("evaluate.cutoff_period", 0)

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks across all configuration sections.
func (c *Config) Validate() error {
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if c.Evaluate.CutoffPeriod < 0 {
		return fmt.Errorf("evaluate.cutoff_period cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
