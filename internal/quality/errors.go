package quality

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrInvalidConfig    = errors.ErrorCode("quality_invalid_config")
	ErrInvalidInput     = errors.ErrQualityAssessment
	ErrInsufficientData = errors.ErrInsufficientData
)
