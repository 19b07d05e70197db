package collector

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrConfiguration  = errors.ErrConfiguration
	ErrInvalidConfig  = errors.ErrorCode("collector_invalid_config")
	ErrAlreadyRunning = errors.ErrorCode("collector_already_running")
)
