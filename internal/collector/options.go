package collector

import (
	"math/rand"

	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/storage"
	"codeberg.org/mutker/weatheragent/internal/telemetry"
)

type Option func(*Collector)

// WithStore persists accepted observations after every committed cycle.
func WithStore(s storage.Store) Option {
	return func(c *Collector) {
		if s != nil {
			c.store = s
		}
	}
}

// WithTelemetry records one snapshot per cycle.
func WithTelemetry(t telemetry.Collector) Option {
	return func(c *Collector) {
		if t != nil {
			c.telemetry = t
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *Collector) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Collector) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRand sets the jitter source. A nil source disables jitter.
func WithRand(rng *rand.Rand) Option {
	return func(c *Collector) {
		c.rng = rng
	}
}
