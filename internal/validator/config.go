package validator

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	defaultMinTemperature = -90.0
	defaultMaxTemperature = 70.0
	defaultMinHumidity    = 0.0
	defaultMaxHumidity    = 100.0
)

// Config holds the plausible physical bounds for observations.
type Config struct {
	MinTemperature float64 `mapstructure:"min_temperature"`
	MaxTemperature float64 `mapstructure:"max_temperature"`
	MinHumidity    float64 `mapstructure:"min_humidity"`
	MaxHumidity    float64 `mapstructure:"max_humidity"`
}

func DefaultConfig() Config {
	return Config{
		MinTemperature: defaultMinTemperature,
		MaxTemperature: defaultMaxTemperature,
		MinHumidity:    defaultMinHumidity,
		MaxHumidity:    defaultMaxHumidity,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.MinTemperature >= c.MaxTemperature {
		return errFactory.WithData(ErrInvalidBounds, struct {
			Field    string
			Min, Max float64
		}{"temperature", c.MinTemperature, c.MaxTemperature})
	}
	if c.MinHumidity < 0 || c.MaxHumidity > 100 || c.MinHumidity >= c.MaxHumidity {
		return errFactory.WithData(ErrInvalidBounds, struct {
			Field    string
			Min, Max float64
		}{"humidity", c.MinHumidity, c.MaxHumidity})
	}

	return nil
}
