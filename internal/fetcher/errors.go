package fetcher

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrFetch         = errors.ErrFetch
	ErrInvalidConfig = errors.ErrorCode("fetcher_invalid_config")
	ErrCircuitOpen   = errors.ErrorCode("fetcher_circuit_open")
)
