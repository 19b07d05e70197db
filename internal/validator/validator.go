// Package validator checks observations for structural completeness and
// plausible value ranges, one record at a time or as a batch.
package validator

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/weather"
	playground "github.com/go-playground/validator/v10"
)

// Result is the verdict on a single observation.
type Result struct {
	Accepted bool
	Reasons  []string
}

// Rejection pairs a refused observation with the reasons it was refused.
type Rejection struct {
	Observation weather.Observation
	Reasons     []string
}

// BatchResult splits a batch into accepted and rejected observations,
// both in input order.
type BatchResult struct {
	Accepted []weather.Observation
	Rejected []Rejection
}

type Validator struct {
	cfg         Config
	validate    *playground.Validate
	temperature string
	humidity    string
}

func New(cfg Config) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Validator{
		cfg:         cfg,
		validate:    playground.New(),
		temperature: rangeTag(cfg.MinTemperature, cfg.MaxTemperature),
		humidity:    rangeTag(cfg.MinHumidity, cfg.MaxHumidity),
	}, nil
}

// Validate checks required text fields, the timestamp and both value ranges.
// The error is only set when validation itself could not run.
func (v *Validator) Validate(obs weather.Observation) (Result, error) {
	var reasons []string

	if obs.Timestamp.IsZero() {
		reasons = append(reasons, "timestamp is missing")
	}

	if err := v.validate.Struct(obs); err != nil {
		fieldErrs, ok := err.(playground.ValidationErrors)
		if !ok {
			return Result{}, errors.New().Wrap(ErrValidationFailed, err)
		}
		for _, fe := range fieldErrs {
			reasons = append(reasons, strings.ToLower(fe.Field())+" is empty")
		}
	}

	reason, err := v.checkRange("temperature", obs.Temperature, v.temperature, v.cfg.MinTemperature, v.cfg.MaxTemperature)
	if err != nil {
		return Result{}, err
	}
	if reason != "" {
		reasons = append(reasons, reason)
	}

	reason, err = v.checkRange("humidity", obs.Humidity, v.humidity, v.cfg.MinHumidity, v.cfg.MaxHumidity)
	if err != nil {
		return Result{}, err
	}
	if reason != "" {
		reasons = append(reasons, reason)
	}

	return Result{Accepted: len(reasons) == 0, Reasons: reasons}, nil
}

// ValidateBatch flags an empty batch with an empty_batch error and otherwise
// routes every record through Validate.
func (v *Validator) ValidateBatch(batch []weather.Observation) (BatchResult, error) {
	if len(batch) == 0 {
		return BatchResult{}, errors.New().New(ErrEmptyBatch)
	}

	var res BatchResult
	for _, obs := range batch {
		verdict, err := v.Validate(obs)
		if err != nil {
			return BatchResult{}, err
		}
		if verdict.Accepted {
			res.Accepted = append(res.Accepted, obs)
			continue
		}
		res.Rejected = append(res.Rejected, Rejection{Observation: obs, Reasons: verdict.Reasons})
	}

	return res, nil
}

func (v *Validator) checkRange(field string, value float64, tag string, lo, hi float64) (string, error) {
	err := v.validate.Var(value, tag)
	if err == nil {
		return "", nil
	}
	if _, ok := err.(playground.ValidationErrors); !ok {
		return "", errors.New().Wrap(ErrValidationFailed, err)
	}

	return fmt.Sprintf("%s %g outside [%g, %g]", field, value, lo, hi), nil
}

func rangeTag(lo, hi float64) string {
	return fmt.Sprintf("gte=%g,lte=%g", lo, hi)
}
