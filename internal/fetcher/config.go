package fetcher

import (
	"net/url"
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
)

const (
	defaultBaseURL          = "https://api.openweathermap.org/data/2.5/weather"
	defaultUnits            = "metric"
	defaultTimeout          = 10 * time.Second
	defaultBreakerThreshold = 5
	defaultBreakerInterval  = time.Minute
	defaultBreakerCooldown  = 30 * time.Second
)

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Units   string        `mapstructure:"units"`
	Timeout time.Duration `mapstructure:"timeout"`
	// BreakerThreshold is the number of consecutive provider failures that
	// opens the circuit; 0 disables the breaker.
	BreakerThreshold uint32        `mapstructure:"breaker_threshold"`
	BreakerInterval  time.Duration `mapstructure:"breaker_interval"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:          defaultBaseURL,
		Units:            defaultUnits,
		Timeout:          defaultTimeout,
		BreakerThreshold: defaultBreakerThreshold,
		BreakerInterval:  defaultBreakerInterval,
		BreakerCooldown:  defaultBreakerCooldown,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errFactory.WithData(ErrInvalidConfig, "base_url must be an absolute URL")
	}

	switch {
	case c.Timeout <= 0:
		return errFactory.WithData(ErrInvalidConfig, "timeout must be positive")
	case c.BreakerInterval < 0 || c.BreakerCooldown < 0:
		return errFactory.WithData(ErrInvalidConfig, "breaker durations must not be negative")
	}

	return nil
}
