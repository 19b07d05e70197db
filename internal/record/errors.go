package record

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	ErrMalformedPayload = errors.ErrMalformedPayload
	ErrUnknownUnits     = errors.ErrorCode("record_unknown_units")
)

// FieldError describes the payload field that could not be mapped.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) String() string {
	return e.Field + " " + e.Reason
}
