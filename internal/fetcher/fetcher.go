// Package fetcher retrieves current-weather payloads from OpenWeatherMap.
// It makes exactly one request per call; retry policy belongs to the caller.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/sony/gobreaker"
)

const maxBodyBytes = 1 << 20

// Fetcher returns the raw provider payload for one city.
type Fetcher interface {
	Fetch(ctx context.Context, city weather.CityTarget, credential string) (weather.RawPayload, error)
}

type OpenWeather struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New returns an OpenWeatherMap client. A nil client gets one with the
// configured timeout.
func New(cfg Config, client *http.Client) (*OpenWeather, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	f := &OpenWeather{cfg: cfg, client: client}
	if cfg.BreakerThreshold > 0 {
		threshold := cfg.BreakerThreshold
		f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "openweather",
			Interval: cfg.BreakerInterval,
			Timeout:  cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
		})
	}

	return f, nil
}

// Fetch requests the current weather for city. Transport failures, non-2xx
// responses, undecodable bodies and an open circuit all surface as
// fetch_failed errors.
func (f *OpenWeather) Fetch(ctx context.Context, city weather.CityTarget, credential string) (weather.RawPayload, error) {
	errFactory := errors.New()

	if city == "" {
		return nil, errFactory.WithData(ErrFetch, "empty city")
	}

	req, err := f.request(ctx, city, credential)
	if err != nil {
		return nil, errFactory.Wrap(ErrFetch, err)
	}

	var payload weather.RawPayload
	if f.breaker == nil {
		payload, err = f.do(req)
	} else {
		var result any
		result, err = f.breaker.Execute(func() (any, error) {
			return f.do(req)
		})
		if err == nil {
			payload, _ = result.(weather.RawPayload)
		}
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = errFactory.Wrap(ErrCircuitOpen, err)
		}
		return nil, errFactory.Wrap(ErrFetch, err).WithMessage(fmt.Sprintf("fetch %s", city))
	}

	return payload, nil
}

// State reports the circuit breaker state, or "disabled".
func (f *OpenWeather) State() string {
	if f.breaker == nil {
		return "disabled"
	}

	return f.breaker.State().String()
}

func (f *OpenWeather) request(ctx context.Context, city weather.CityTarget, credential string) (*http.Request, error) {
	values := url.Values{}
	values.Set("q", city.String())
	values.Set("appid", credential)
	if f.cfg.Units != "" {
		values.Set("units", f.cfg.Units)
	}

	return http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.BaseURL+"?"+values.Encode(), nil)
}

func (f *OpenWeather) do(req *http.Request) (weather.RawPayload, error) {
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, message: providerMessage(body)}
	}

	var payload weather.RawPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.New().Wrap(errors.ErrMalformedPayload, err)
	}

	return payload, nil
}

// statusError is a non-2xx provider response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("status %d", e.code)
	}

	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

// StatusCode returns the HTTP status of a failed fetch, or 0.
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}

	return 0
}

// isClientError reports a 4xx other than 429; those say nothing about
// provider health and must not trip the breaker.
func isClientError(err error) bool {
	code := StatusCode(err)

	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

// providerMessage extracts OpenWeatherMap's {"cod": ..., "message": ...} text.
func providerMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return ""
	}

	return envelope.Message
}
