package report

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("report_invalid_config")
	ErrWriteReport   = errors.ErrWriteReport
	ErrNilSession    = errors.ErrorCode("report_nil_session")
)
