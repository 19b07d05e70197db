package telemetry

import (
	"context"
	"time"
)

// Collector records one snapshot per collection cycle.
type Collector interface {
	Record(ctx context.Context, snapshot *CycleSnapshot) error
	Close() error
}

// CycleSnapshot describes a committed cycle.
type CycleSnapshot struct {
	SessionID    string
	Cycle        int
	Timestamp    time.Time
	Attempts     int
	Successes    int
	Accepted     int
	Rejected     int
	Observations int
	SuccessRate  float64
	Delay        time.Duration
	Adjustment   string
	Quality      float64
	Discarded    bool
}
