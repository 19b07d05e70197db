package errors

// Common error codes
const (
	// System errors
	ErrInternal       ErrorCode = "internal_error"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrConfiguration   ErrorCode = "configuration_error"
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingAPIKey   ErrorCode = "missing_api_key"
	ErrNoCities        ErrorCode = "no_cities_configured"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Collection errors
	ErrFetch             ErrorCode = "fetch_failed"
	ErrMalformedPayload  ErrorCode = "malformed_payload"
	ErrValidationReject  ErrorCode = "validation_rejected"
	ErrEmptyBatch        ErrorCode = "empty_batch"
	ErrInsufficientData  ErrorCode = "insufficient_data"
	ErrSessionFrozen     ErrorCode = "session_frozen"
	ErrQualityAssessment ErrorCode = "quality_assessment_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"

	// Report errors
	ErrWriteReport ErrorCode = "write_report_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrConfiguration:     "Configuration error",
	ErrInvalidConfig:     "Invalid configuration",
	ErrMissingAPIKey:     "Missing API credential",
	ErrNoCities:          "No cities configured",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read configuration",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrFetch:             "Failed to fetch observation",
	ErrMalformedPayload:  "Malformed provider payload",
	ErrValidationReject:  "Observation rejected by validation",
	ErrEmptyBatch:        "Empty observation batch",
	ErrInsufficientData:  "Insufficient data",
	ErrSessionFrozen:     "Session is frozen",
	ErrQualityAssessment: "Failed to assess data quality",
	ErrOperationFailed:   "Operation failed",
	ErrTimeout:           "Operation timed out",
	ErrWriteReport:       "Failed to write report",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
