package quality

import (
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
)

const (
	defaultAnomalyStdDev       = 2.5
	defaultMinAnomalySamples   = 10
	defaultTimelinessTolerance = 60 * time.Second
	defaultMaxTemperatureSwing = 10.0
	defaultMaxHumiditySwing    = 30.0
	defaultLowSuccessRate      = 0.5
	defaultModerateSuccessRate = 0.8
	defaultMinObservations     = 10
)

// Weights sets the contribution of each sub-score to the aggregate.
type Weights struct {
	Completeness float64 `mapstructure:"completeness"`
	Consistency  float64 `mapstructure:"consistency"`
	Accuracy     float64 `mapstructure:"accuracy"`
	Timeliness   float64 `mapstructure:"timeliness"`
}

func (w Weights) sum() float64 {
	return w.Completeness + w.Consistency + w.Accuracy + w.Timeliness
}

type Config struct {
	AnomalyStdDev       float64       `mapstructure:"anomaly_stddev"`
	MinAnomalySamples   int           `mapstructure:"min_anomaly_samples"`
	TimelinessTolerance time.Duration `mapstructure:"timeliness_tolerance"`
	MaxTemperatureSwing float64       `mapstructure:"max_temperature_swing"`
	MaxHumiditySwing    float64       `mapstructure:"max_humidity_swing"`
	Weights             Weights       `mapstructure:"weights"`

	// Recommendation buckets
	LowSuccessRate      float64 `mapstructure:"low_success_rate"`
	ModerateSuccessRate float64 `mapstructure:"moderate_success_rate"`
	MinObservations     int     `mapstructure:"min_observations"`
}

func DefaultConfig() Config {
	return Config{
		AnomalyStdDev:       defaultAnomalyStdDev,
		MinAnomalySamples:   defaultMinAnomalySamples,
		TimelinessTolerance: defaultTimelinessTolerance,
		MaxTemperatureSwing: defaultMaxTemperatureSwing,
		MaxHumiditySwing:    defaultMaxHumiditySwing,
		Weights: Weights{
			Completeness: 0.25,
			Consistency:  0.25,
			Accuracy:     0.25,
			Timeliness:   0.25,
		},
		LowSuccessRate:      defaultLowSuccessRate,
		ModerateSuccessRate: defaultModerateSuccessRate,
		MinObservations:     defaultMinObservations,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.AnomalyStdDev <= 0:
		return errFactory.WithData(ErrInvalidConfig, "anomaly_stddev must be > 0")
	case c.MinAnomalySamples < 2:
		return errFactory.WithData(ErrInvalidConfig, "min_anomaly_samples must be >= 2")
	case float64(c.MinAnomalySamples) <= c.AnomalyStdDev*c.AnomalyStdDev+1:
		// A single outlier among n samples is at most sqrt(n-1) deviations out.
		return errFactory.WithData(ErrInvalidConfig, "min_anomaly_samples must exceed anomaly_stddev^2 + 1")
	case c.TimelinessTolerance < 0:
		return errFactory.WithData(ErrInvalidConfig, "timeliness_tolerance must not be negative")
	case c.MaxTemperatureSwing <= 0 || c.MaxHumiditySwing <= 0:
		return errFactory.WithData(ErrInvalidConfig, "swing limits must be > 0")
	case c.Weights.Completeness < 0 || c.Weights.Consistency < 0 || c.Weights.Accuracy < 0 || c.Weights.Timeliness < 0:
		return errFactory.WithData(ErrInvalidConfig, "weights must not be negative")
	case c.Weights.sum() == 0:
		return errFactory.WithData(ErrInvalidConfig, "at least one weight must be > 0")
	case c.LowSuccessRate > c.ModerateSuccessRate:
		return errFactory.WithData(ErrInvalidConfig, "low_success_rate must be <= moderate_success_rate")
	case c.MinObservations < 0:
		return errFactory.WithData(ErrInvalidConfig, "min_observations must not be negative")
	}

	return nil
}
