package validator

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrInvalidBounds    = errors.ErrorCode("validator_invalid_bounds")
	ErrEmptyBatch       = errors.ErrEmptyBatch
	ErrValidationFailed = errors.ErrorCode("validator_internal_failure")
)
