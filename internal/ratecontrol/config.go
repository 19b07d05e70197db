package ratecontrol

import (
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
)

const (
	defaultInitialDelay         = 2 * time.Second
	defaultMinDelay             = 500 * time.Millisecond
	defaultMaxDelay             = 60 * time.Second
	defaultIncreaseFactor       = 2.0
	defaultDecreaseFactor       = 0.8
	defaultLowSuccessThreshold  = 0.5
	defaultHighSuccessThreshold = 0.9
	defaultJitter               = 0.5
)

type Config struct {
	InitialDelay         time.Duration `mapstructure:"initial_delay"`
	MinDelay             time.Duration `mapstructure:"min_delay"`
	MaxDelay             time.Duration `mapstructure:"max_delay"`
	IncreaseFactor       float64       `mapstructure:"increase_factor"`
	DecreaseFactor       float64       `mapstructure:"decrease_factor"`
	LowSuccessThreshold  float64       `mapstructure:"low_success_threshold"`
	HighSuccessThreshold float64       `mapstructure:"high_success_threshold"`
	// WindowSize is the number of most recent attempts the success rate is
	// computed over; 0 means one cycle (the number of cities).
	WindowSize int `mapstructure:"window_size"`
	// Jitter spreads the actual wait over delay*[1-Jitter, 1+Jitter].
	Jitter float64 `mapstructure:"jitter"`
}

func DefaultConfig() Config {
	return Config{
		InitialDelay:         defaultInitialDelay,
		MinDelay:             defaultMinDelay,
		MaxDelay:             defaultMaxDelay,
		IncreaseFactor:       defaultIncreaseFactor,
		DecreaseFactor:       defaultDecreaseFactor,
		LowSuccessThreshold:  defaultLowSuccessThreshold,
		HighSuccessThreshold: defaultHighSuccessThreshold,
		Jitter:               defaultJitter,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.MinDelay < 0:
		return errFactory.WithData(ErrInvalidConfig, "min_delay must not be negative")
	case c.MaxDelay < c.MinDelay:
		return errFactory.WithData(ErrInvalidConfig, "max_delay must be >= min_delay")
	case c.IncreaseFactor <= 1:
		return errFactory.WithData(ErrInvalidConfig, "increase_factor must be > 1")
	case c.DecreaseFactor <= 0 || c.DecreaseFactor >= 1:
		return errFactory.WithData(ErrInvalidConfig, "decrease_factor must be in (0, 1)")
	case c.LowSuccessThreshold < 0 || c.HighSuccessThreshold > 1 || c.LowSuccessThreshold > c.HighSuccessThreshold:
		return errFactory.WithData(ErrInvalidConfig, "success thresholds must satisfy 0 <= low <= high <= 1")
	case c.WindowSize < 0:
		return errFactory.WithData(ErrInvalidConfig, "window_size must not be negative")
	case c.Jitter < 0 || c.Jitter >= 1:
		return errFactory.WithData(ErrInvalidConfig, "jitter must be in [0, 1)")
	}

	return nil
}
