// Package ratecontrol adapts the delay between collection cycles to the
// recent success rate of provider requests.
package ratecontrol

import (
	"math/rand"
	"time"

	"codeberg.org/mutker/weatheragent/internal/weather"
)

type Adjustment string

const (
	AdjustIncrease Adjustment = "increase"
	AdjustDecrease Adjustment = "decrease"
	AdjustHold     Adjustment = "hold"
)

// Decision describes one evaluation of the delay policy.
type Decision struct {
	Previous    time.Duration
	Delay       time.Duration
	SuccessRate float64
	Samples     int
	Adjustment  Adjustment
}

// Next applies the delay policy. Both thresholds are exclusive: a rate of
// exactly LowSuccessThreshold or HighSuccessThreshold holds the delay.
func (c Config) Next(current time.Duration, rate float64) (time.Duration, Adjustment) {
	switch {
	case rate < c.LowSuccessThreshold:
		return c.clamp(scale(current, c.IncreaseFactor)), AdjustIncrease
	case rate > c.HighSuccessThreshold:
		return c.clamp(scale(current, c.DecreaseFactor)), AdjustDecrease
	default:
		return c.clamp(current), AdjustHold
	}
}

func (c Config) clamp(d time.Duration) time.Duration {
	if d < c.MinDelay {
		return c.MinDelay
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}

	return d
}

// Controller owns the current delay and the rolling outcome window.
type Controller struct {
	cfg    Config
	window *Window
	delay  time.Duration
}

// New creates a controller; cities sizes the window when cfg.WindowSize is 0.
func New(cfg Config, cities int) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	size := cfg.WindowSize
	if size == 0 {
		size = cities
	}

	return &Controller{
		cfg:    cfg,
		window: NewWindow(size),
		delay:  cfg.clamp(cfg.InitialDelay),
	}, nil
}

// Record feeds attempt outcomes into the rolling window.
func (c *Controller) Record(outcomes ...weather.AttemptOutcome) {
	for _, o := range outcomes {
		c.window.Record(o.Success)
	}
}

// Adjust evaluates the policy once against the current window.
func (c *Controller) Adjust() Decision {
	d := Decision{
		Previous:   c.delay,
		Delay:      c.delay,
		Samples:    c.window.Len(),
		Adjustment: AdjustHold,
	}

	rate, ok := c.window.SuccessRate()
	if !ok {
		return d
	}

	d.SuccessRate = rate
	d.Delay, d.Adjustment = c.cfg.Next(c.delay, rate)
	c.delay = d.Delay

	return d
}

func (c *Controller) Delay() time.Duration {
	return c.delay
}

// Wait returns the jittered wait for the current delay, kept within
// [MinDelay, MaxDelay]. A nil rng or zero jitter returns the delay itself.
func (c *Controller) Wait(rng *rand.Rand) time.Duration {
	if rng == nil || c.cfg.Jitter == 0 {
		return c.delay
	}

	factor := 1 - c.cfg.Jitter + 2*c.cfg.Jitter*rng.Float64()

	return c.cfg.clamp(scale(c.delay, factor))
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
