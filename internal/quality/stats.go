package quality

import (
	"fmt"
	"math"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Distribution summarises observed temperatures. On an empty set every
// value is 0 and Defined is false.
type Distribution struct {
	Count   int     `json:"count"`
	Defined bool    `json:"defined"`
	Min     float64 `json:"min_temp"`
	Max     float64 `json:"max_temp"`
	Mean    float64 `json:"avg_temp"`
	StdDev  float64 `json:"stddev_temp"`
}

// Distribute reduces the observation temperatures to min, max, mean and
// population standard deviation.
func Distribute(obs []weather.Observation) Distribution {
	if len(obs) == 0 {
		return Distribution{}
	}

	d := Distribution{
		Count:   len(obs),
		Defined: true,
		Min:     obs[0].Temperature,
		Max:     obs[0].Temperature,
	}

	var sum float64
	for _, o := range obs {
		sum += o.Temperature
		d.Min = math.Min(d.Min, o.Temperature)
		d.Max = math.Max(d.Max, o.Temperature)
	}
	d.Mean = sum / float64(len(obs))

	var squares float64
	for _, o := range obs {
		diff := o.Temperature - d.Mean
		squares += diff * diff
	}
	d.StdDev = math.Sqrt(squares / float64(len(obs)))

	// Rounding can push the mean a hair outside [Min, Max] on constant input.
	d.Mean = math.Max(d.Min, math.Min(d.Max, d.Mean))

	return d
}

type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type AnomalyStatus string

const (
	AnomalyEvaluated        AnomalyStatus = "evaluated"
	AnomalyInsufficientData AnomalyStatus = "insufficient_data"
)

// AnomalyFlag marks one observation as a temperature outlier.
type AnomalyFlag struct {
	Index       int                 `json:"index"`
	Observation weather.Observation `json:"observation"`
	Reason      string              `json:"reason"`
	Severity    Severity            `json:"severity"`
	Deviations  float64             `json:"deviations"`
}

// AnomalyReport carries the flags together with how they were produced, so
// an empty flag list from a skipped check is distinguishable from a clean one.
type AnomalyReport struct {
	Status     AnomalyStatus `json:"status"`
	Samples    int           `json:"samples"`
	MinSamples int           `json:"min_samples"`
	Threshold  float64       `json:"threshold_stddev"`
	Flags      []AnomalyFlag `json:"flags"`
}

// Err returns an insufficient_data error when detection was skipped.
func (r AnomalyReport) Err() error {
	if r.Status != AnomalyInsufficientData {
		return nil
	}

	return errors.New().WithData(ErrInsufficientData, fmt.Sprintf("%d of %d samples required for anomaly detection", r.Samples, r.MinSamples))
}

// DetectAnomalies flags every observation further than AnomalyStdDev
// standard deviations from the mean. Fewer than MinAnomalySamples
// observations skip detection with AnomalyInsufficientData.
func (e *Engine) DetectAnomalies(obs []weather.Observation, dist Distribution) AnomalyReport {
	r := AnomalyReport{
		Status:     AnomalyEvaluated,
		Samples:    len(obs),
		MinSamples: e.cfg.MinAnomalySamples,
		Threshold:  e.cfg.AnomalyStdDev,
		Flags:      []AnomalyFlag{},
	}

	if len(obs) < e.cfg.MinAnomalySamples {
		r.Status = AnomalyInsufficientData
		return r
	}
	if dist.StdDev == 0 {
		return r
	}

	for i, o := range obs {
		z := math.Abs(o.Temperature-dist.Mean) / dist.StdDev
		if z <= e.cfg.AnomalyStdDev {
			continue
		}

		severity := SeverityMedium
		if z > 2*e.cfg.AnomalyStdDev {
			severity = SeverityHigh
		}

		r.Flags = append(r.Flags, AnomalyFlag{
			Index:       i,
			Observation: o,
			Reason: fmt.Sprintf("temperature outlier: %.1f°C is %.1f standard deviations from the mean %.1f°C",
				o.Temperature, z, dist.Mean),
			Severity:   severity,
			Deviations: z,
		})
	}

	return r
}
