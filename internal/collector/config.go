package collector

import "codeberg.org/mutker/weatheragent/internal/errors"

// StopMode combines the enabled sufficiency conditions.
type StopMode string

const (
	StopAny StopMode = "any"
	StopAll StopMode = "all"
)

// Pacing selects where the rate controller's delay is applied.
type Pacing string

const (
	// PaceRequests waits the delay before every fetch except the first.
	PaceRequests Pacing = "request"
	// PaceCycles waits the delay only between full passes over the cities.
	PaceCycles Pacing = "cycle"
)

const (
	defaultTargetObservations = 50
	defaultMaxCycles          = 10
)

// Config holds the stop condition and pacing. TargetObservations,
// MinPerCity and MinQuality are each disabled when zero; MaxCycles is
// always enforced.
type Config struct {
	TargetObservations int      `mapstructure:"target_observations"`
	MinPerCity         int      `mapstructure:"min_per_city"`
	MinQuality         float64  `mapstructure:"min_quality"`
	MaxCycles          int      `mapstructure:"max_cycles"`
	Mode               StopMode `mapstructure:"mode"`
	Pacing             Pacing   `mapstructure:"pacing"`
}

func DefaultConfig() Config {
	return Config{
		TargetObservations: defaultTargetObservations,
		MaxCycles:          defaultMaxCycles,
		Mode:               StopAny,
		Pacing:             PaceRequests,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.TargetObservations < 0 || c.MinPerCity < 0:
		return errFactory.WithData(ErrInvalidConfig, "observation targets must not be negative")
	case c.MinQuality < 0 || c.MinQuality > 1:
		return errFactory.WithData(ErrInvalidConfig, "min_quality must be in [0, 1]")
	case c.MaxCycles < 1:
		return errFactory.WithData(ErrInvalidConfig, "max_cycles must be at least 1")
	case c.Mode != StopAny && c.Mode != StopAll:
		return errFactory.WithData(ErrInvalidConfig, "mode must be \"any\" or \"all\"")
	case c.Pacing != PaceRequests && c.Pacing != PaceCycles:
		return errFactory.WithData(ErrInvalidConfig, "pacing must be \"request\" or \"cycle\"")
	}

	return nil
}
