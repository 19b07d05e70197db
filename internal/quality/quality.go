// Package quality scores an observation set and its attempt history.
//
// Every function here is pure: the same Input always produces the same
// Assessment, down to the last bit of every float.
package quality

import (
	"math"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Input is the state the engine scores.
type Input struct {
	Targets      []weather.CityTarget
	Observations []weather.Observation
	Outcomes     []weather.AttemptOutcome
	// Accepted and Rejected count records that reached the validator.
	Accepted int
	Rejected int
}

type Score struct {
	Completeness float64 `json:"completeness"`
	Consistency  float64 `json:"consistency"`
	Accuracy     float64 `json:"accuracy"`
	Timeliness   float64 `json:"timeliness"`
	Aggregate    float64 `json:"aggregate"`
}

type CompletenessDetail struct {
	AttemptedCities   int                  `json:"attempted_cities"`
	CoveredCities     int                  `json:"covered_cities"`
	MissingCities     []weather.CityTarget `json:"missing_cities,omitempty"`
	CityCoverage      float64              `json:"city_coverage"`
	FieldCompleteness float64              `json:"field_completeness"`
	IncompleteRecords int                  `json:"incomplete_records"`
}

type ConsistencyDetail struct {
	ComparedPairs      int `json:"compared_pairs"`
	InconsistentPairs  int `json:"inconsistent_pairs"`
	InconsistentCities int `json:"inconsistent_cities"`
}

type TimelinessDetail struct {
	Timely    int     `json:"timely"`
	Late      int     `json:"late"`
	MaxLagSec float64 `json:"max_lag_seconds"`
}

// Assessment is the full engine output for one Input.
type Assessment struct {
	Score           Score              `json:"score"`
	Completeness    CompletenessDetail `json:"completeness"`
	Consistency     ConsistencyDetail  `json:"consistency"`
	Timeliness      TimelinessDetail   `json:"timeliness"`
	Distribution    Distribution       `json:"distribution"`
	Anomalies       AnomalyReport      `json:"anomalies"`
	Attempts        int                `json:"attempts"`
	Failures        int                `json:"failures"`
	SuccessRate     float64            `json:"success_rate"`
	Recommendations []string           `json:"recommendations"`
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Assess computes sub-scores, the aggregate, distribution statistics,
// anomaly flags and recommendations.
func (e *Engine) Assess(in Input) (Assessment, error) {
	if err := checkInput(in); err != nil {
		return Assessment{}, err
	}

	var a Assessment

	a.Attempts, a.Failures = len(in.Outcomes), 0
	for _, o := range in.Outcomes {
		if !o.Success {
			a.Failures++
		}
	}
	if a.Attempts > 0 {
		a.SuccessRate = float64(a.Attempts-a.Failures) / float64(a.Attempts)
	}

	a.Score.Completeness, a.Completeness = completeness(in)
	a.Score.Consistency, a.Consistency = e.consistency(in.Observations)
	a.Score.Accuracy = accuracy(in.Accepted, in.Rejected)
	a.Score.Timeliness, a.Timeliness = e.timeliness(in.Observations)
	a.Score.Aggregate = e.aggregate(a.Score)

	a.Distribution = Distribute(in.Observations)
	a.Anomalies = e.DetectAnomalies(in.Observations, a.Distribution)
	a.Recommendations = e.Recommend(signalsOf(a, in.Rejected))

	return a, nil
}

func checkInput(in Input) error {
	errFactory := errors.New()

	if in.Accepted < 0 || in.Rejected < 0 {
		return errFactory.WithData(ErrInvalidInput, "negative validation counters")
	}
	if in.Accepted < len(in.Observations) {
		return errFactory.WithData(ErrInvalidInput, "more observations than accepted records")
	}
	for _, o := range in.Observations {
		if math.IsNaN(o.Temperature) || math.IsInf(o.Temperature, 0) ||
			math.IsNaN(o.Humidity) || math.IsInf(o.Humidity, 0) {
			return errFactory.WithData(ErrInvalidInput, "non-finite observation value")
		}
	}

	return nil
}

// completeness multiplies the share of attempted cities with at least one
// observation by the share of observations with every field present.
func completeness(in Input) (float64, CompletenessDetail) {
	var d CompletenessDetail

	covered := make(map[weather.CityTarget]bool)
	for _, o := range in.Observations {
		covered[o.Target] = true
	}

	attempted := make(map[weather.CityTarget]bool)
	for _, o := range in.Outcomes {
		if attempted[o.City] {
			continue
		}
		attempted[o.City] = true
		d.AttemptedCities++
		if covered[o.City] {
			d.CoveredCities++
		} else {
			d.MissingCities = append(d.MissingCities, o.City)
		}
	}

	if len(in.Observations) == 0 || d.AttemptedCities == 0 {
		return 0, d
	}

	for _, o := range in.Observations {
		if o.City == "" || o.Description == "" || o.Timestamp.IsZero() {
			d.IncompleteRecords++
		}
	}

	d.CityCoverage = float64(d.CoveredCities) / float64(d.AttemptedCities)
	d.FieldCompleteness = float64(len(in.Observations)-d.IncompleteRecords) / float64(len(in.Observations))

	return d.CityCoverage * d.FieldCompleteness, d
}

// consistency compares each observation with the previous one for the same
// city; a pair is consistent when both swings stay within the configured limits.
// With observations but no repeated city the score is 1.
func (e *Engine) consistency(obs []weather.Observation) (float64, ConsistencyDetail) {
	var d ConsistencyDetail
	if len(obs) == 0 {
		return 0, d
	}

	last := make(map[weather.CityTarget]weather.Observation)
	flagged := make(map[weather.CityTarget]bool)
	for _, o := range obs {
		prev, seen := last[o.Target]
		last[o.Target] = o
		if !seen {
			continue
		}

		d.ComparedPairs++
		if math.Abs(o.Temperature-prev.Temperature) > e.cfg.MaxTemperatureSwing ||
			math.Abs(o.Humidity-prev.Humidity) > e.cfg.MaxHumiditySwing {
			d.InconsistentPairs++
			if !flagged[o.Target] {
				flagged[o.Target] = true
				d.InconsistentCities++
			}
		}
	}

	if d.ComparedPairs == 0 {
		return 1, d
	}

	return float64(d.ComparedPairs-d.InconsistentPairs) / float64(d.ComparedPairs), d
}

// accuracy is 1 minus the validator's rejection rate.
func accuracy(accepted, rejected int) float64 {
	total := accepted + rejected
	if total == 0 {
		return 0
	}

	return float64(accepted) / float64(total)
}

func (e *Engine) timeliness(obs []weather.Observation) (float64, TimelinessDetail) {
	var d TimelinessDetail
	if len(obs) == 0 {
		return 0, d
	}

	var maxLag float64
	for _, o := range obs {
		lag := o.Lag()
		if lag <= e.cfg.TimelinessTolerance {
			d.Timely++
		} else {
			d.Late++
		}
		maxLag = math.Max(maxLag, lag.Seconds())
	}
	d.MaxLagSec = maxLag

	return float64(d.Timely) / float64(len(obs)), d
}

func (e *Engine) aggregate(s Score) float64 {
	w := e.cfg.Weights

	return (w.Completeness*s.Completeness +
		w.Consistency*s.Consistency +
		w.Accuracy*s.Accuracy +
		w.Timeliness*s.Timeliness) / w.sum()
}
