package ratecontrol

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("ratecontrol_invalid_config")
)
