package collector

import (
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/validator"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// BatchValidator splits a cycle's built observations into accepted and
// rejected records. An error other than empty_batch discards the cycle.
type BatchValidator interface {
	ValidateBatch(batch []weather.Observation) (validator.BatchResult, error)
}

// Assessor scores a session snapshot. An error discards the cycle's
// accepted observations.
type Assessor interface {
	Assess(in quality.Input) (quality.Assessment, error)
}
