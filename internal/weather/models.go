// Package weather holds the domain types shared by the collection pipeline.
package weather

import (
	"strings"
	"time"
)

// CityTarget is a provider query string such as "Boston,MA,US" or
// "San Juan,PR". The set of targets is fixed for a run.
type CityTarget string

// Name returns the city part of the target.
func (c CityTarget) Name() string {
	name, _, _ := strings.Cut(string(c), ",")
	return strings.TrimSpace(name)
}

func (c CityTarget) String() string {
	return string(c)
}

// ParseTargets trims and de-duplicates identifiers, preserving order.
func ParseTargets(ids []string) []CityTarget {
	seen := make(map[string]struct{}, len(ids))
	targets := make([]CityTarget, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, CityTarget(id))
	}

	return targets
}

// RawPayload is a decoded provider response using provider-native field names.
type RawPayload map[string]any

// Observation is one validated weather data point. The JSON field order is
// the raw-data artifact contract.
type Observation struct {
	Timestamp   time.Time `json:"timestamp"`
	City        string    `json:"city" validate:"required"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Description string    `json:"description" validate:"required"`

	// Target, Cycle and ScheduledAt tie the observation to the request and
	// collection pass that produced it; they are not part of the persisted
	// record.
	Target      CityTarget `json:"-"`
	Cycle       int        `json:"-"`
	ScheduledAt time.Time  `json:"-"`
}

// Lag is how far the observation trails its scheduled collection instant.
func (o Observation) Lag() time.Duration {
	if o.ScheduledAt.IsZero() {
		return 0
	}

	return o.Timestamp.Sub(o.ScheduledAt)
}

// AttemptOutcome records a single fetch attempt.
type AttemptOutcome struct {
	City      CityTarget
	Success   bool
	Err       string
	Timestamp time.Time
	Cycle     int
}

// IssueCategory groups issues for the final report.
type IssueCategory string

const (
	IssueFetchError       IssueCategory = "fetch_error"
	IssueMalformedPayload IssueCategory = "malformed_payload"
	IssueValidationReject IssueCategory = "validation_rejection"
	IssueEmptyBatch       IssueCategory = "empty_batch"
	IssueCycleDiscarded   IssueCategory = "cycle_discarded"
	IssueInsufficientData IssueCategory = "insufficient_data"
	IssueStorageFailure   IssueCategory = "storage_failure"
	IssueTelemetryFailure IssueCategory = "telemetry_failure"
)

// IssueCategories lists every category in report order.
var IssueCategories = []IssueCategory{
	IssueFetchError,
	IssueMalformedPayload,
	IssueValidationReject,
	IssueEmptyBatch,
	IssueCycleDiscarded,
	IssueInsufficientData,
	IssueStorageFailure,
	IssueTelemetryFailure,
}

// Issue is one entry in the session's issues log.
type Issue struct {
	Category  IssueCategory `json:"category"`
	City      CityTarget    `json:"city,omitempty"`
	Cycle     int           `json:"cycle"`
	Detail    string        `json:"detail"`
	Timestamp time.Time     `json:"timestamp"`
}
