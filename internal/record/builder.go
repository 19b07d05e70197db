// Package record maps raw provider payloads onto normalized observations.
package record

import (
	"encoding/json"
	"strings"
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Units names the provider unit system of temperature values.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
	UnitsStandard Units = "standard"
)

const kelvinOffset = 273.15

// Builder turns one provider response into an Observation.
type Builder struct {
	units Units
}

// New returns a Builder for payloads reported in the given units.
func New(units Units) (*Builder, error) {
	switch units {
	case "":
		units = UnitsMetric
	case UnitsMetric, UnitsImperial, UnitsStandard:
	default:
		return nil, errors.New().WithData(ErrUnknownUnits, units)
	}

	return &Builder{units: units}, nil
}

// Units returns the unit system the builder expects.
func (b *Builder) Units() Units {
	return b.units
}

// Build maps name, main.temp, main.humidity and weather[0].description.
// A missing or mistyped field yields a malformed_payload error.
func (b *Builder) Build(raw weather.RawPayload, now time.Time) (weather.Observation, error) {
	errFactory := errors.New()

	if raw == nil {
		return weather.Observation{}, errFactory.WithData(ErrMalformedPayload, FieldError{"payload", "is empty"})
	}

	name, err := str(raw, "name")
	if err != nil {
		return weather.Observation{}, err
	}

	block, ok := raw["main"].(map[string]any)
	if !ok {
		return weather.Observation{}, missingOrMistyped(raw, "main", "main")
	}

	temp, err := number(block, "temp", "main.temp")
	if err != nil {
		return weather.Observation{}, err
	}

	humidity, err := number(block, "humidity", "main.humidity")
	if err != nil {
		return weather.Observation{}, err
	}

	conditions, ok := raw["weather"].([]any)
	if !ok {
		return weather.Observation{}, missingOrMistyped(raw, "weather", "weather")
	}
	if len(conditions) == 0 {
		return weather.Observation{}, errFactory.WithData(ErrMalformedPayload, FieldError{"weather", "is empty"})
	}

	first, ok := conditions[0].(map[string]any)
	if !ok {
		return weather.Observation{}, errFactory.WithData(ErrMalformedPayload, FieldError{"weather[0]", "is not an object"})
	}

	description, err := str(first, "description")
	if err != nil {
		return weather.Observation{}, errFactory.WithData(ErrMalformedPayload, FieldError{"weather[0].description", "is missing or not a string"})
	}

	return weather.Observation{
		Timestamp:   now,
		City:        strings.TrimSpace(name),
		Temperature: b.toCelsius(temp),
		Humidity:    humidity,
		Description: strings.TrimSpace(description),
	}, nil
}

func (b *Builder) toCelsius(v float64) float64 {
	switch b.units {
	case UnitsImperial:
		return (v - 32) * 5 / 9
	case UnitsStandard:
		return v - kelvinOffset
	default:
		return v
	}
}

func str(m map[string]any, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok {
		return "", missingOrMistyped(m, key, key)
	}

	return v, nil
}

func number(m map[string]any, key, field string) (float64, error) {
	switch v := m[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errors.New().WithData(ErrMalformedPayload, FieldError{field, "is not a number"})
		}
		return f, nil
	default:
		return 0, missingOrMistyped(m, key, field)
	}
}

func missingOrMistyped(m map[string]any, key, field string) error {
	reason := "has the wrong type"
	if _, ok := m[key]; !ok {
		reason = "is missing"
	}

	return errors.New().WithData(ErrMalformedPayload, FieldError{field, reason})
}
