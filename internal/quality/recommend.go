package quality

import "fmt"

type SuccessBucket string

const (
	SuccessNone     SuccessBucket = "none"
	SuccessLow      SuccessBucket = "low"
	SuccessModerate SuccessBucket = "moderate"
	SuccessHigh     SuccessBucket = "high"
)

type VolumeBucket string

const (
	VolumeEmpty      VolumeBucket = "empty"
	VolumeLow        VolumeBucket = "low"
	VolumeSufficient VolumeBucket = "sufficient"
)

// Signals are the inputs of the recommendation rule table.
type Signals struct {
	SuccessRate   float64
	Attempts      int
	Failures      int
	Observations  int
	Anomalies     int
	AnomalyStatus AnomalyStatus
	AnomalyMin    int
	Rejected      int
	Inconsistent  int
}

type rule struct {
	applies func(s Signals, success SuccessBucket, volume VolumeBucket) bool
	text    func(s Signals, cfg Config) string
}

// rules are evaluated in order; every matching rule contributes one line.
var rules = []rule{
	{
		applies: func(_ Signals, success SuccessBucket, _ VolumeBucket) bool { return success == SuccessLow },
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("Success rate is low (%.1f%%): increase the delay between requests or check the API quota.", s.SuccessRate*100)
		},
	},
	{
		applies: func(_ Signals, success SuccessBucket, _ VolumeBucket) bool { return success == SuccessModerate },
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("Success rate is moderate (%.1f%%): monitor provider availability and consider a longer delay.", s.SuccessRate*100)
		},
	},
	{
		applies: func(_ Signals, _ SuccessBucket, volume VolumeBucket) bool { return volume == VolumeEmpty },
		text: func(Signals, Config) string {
			return "No observations were collected: verify the API credential and city identifiers."
		},
	},
	{
		applies: func(_ Signals, _ SuccessBucket, volume VolumeBucket) bool { return volume == VolumeLow },
		text: func(s Signals, cfg Config) string {
			return fmt.Sprintf("Extend collection time to gather more data (%d observations, at least %d recommended).", s.Observations, cfg.MinObservations)
		},
	},
	{
		applies: func(s Signals, _ SuccessBucket, volume VolumeBucket) bool {
			return s.AnomalyStatus == AnomalyInsufficientData && volume != VolumeEmpty
		},
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("Anomaly detection skipped: insufficient data (%d of %d required samples).", s.Observations, s.AnomalyMin)
		},
	},
	{
		applies: func(s Signals, _ SuccessBucket, _ VolumeBucket) bool { return s.Anomalies > 0 },
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("Review %d temperature anomalies before using the dataset.", s.Anomalies)
		},
	},
	{
		applies: func(s Signals, success SuccessBucket, _ VolumeBucket) bool { return s.Failures > 0 && success == SuccessHigh },
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("%d API requests failed; review the fetch errors in the issues log.", s.Failures)
		},
	},
	{
		applies: func(s Signals, _ SuccessBucket, _ VolumeBucket) bool { return s.Rejected > 0 },
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("%d records were rejected by validation; review the issues log.", s.Rejected)
		},
	},
	{
		applies: func(s Signals, _ SuccessBucket, _ VolumeBucket) bool { return s.Inconsistent > 0 },
		text: func(s Signals, _ Config) string {
			return fmt.Sprintf("%d inconsistent consecutive readings were observed; check the provider data for those cities.", s.Inconsistent)
		},
	},
}

const noIssuesRecommendation = "Collection successful with no major issues."

func (e *Engine) SuccessBucket(s Signals) SuccessBucket {
	switch {
	case s.Attempts == 0:
		return SuccessNone
	case s.SuccessRate < e.cfg.LowSuccessRate:
		return SuccessLow
	case s.SuccessRate < e.cfg.ModerateSuccessRate:
		return SuccessModerate
	default:
		return SuccessHigh
	}
}

func (e *Engine) VolumeBucket(s Signals) VolumeBucket {
	switch {
	case s.Observations == 0:
		return VolumeEmpty
	case s.Observations < e.cfg.MinObservations:
		return VolumeLow
	default:
		return VolumeSufficient
	}
}

// Recommend maps the signals through the rule table. The result is never
// empty and depends on nothing but s and the engine config.
func (e *Engine) Recommend(s Signals) []string {
	success, volume := e.SuccessBucket(s), e.VolumeBucket(s)

	var recs []string
	for _, r := range rules {
		if r.applies(s, success, volume) {
			recs = append(recs, r.text(s, e.cfg))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, noIssuesRecommendation)
	}

	return recs
}

func signalsOf(a Assessment, rejected int) Signals {
	return Signals{
		SuccessRate:   a.SuccessRate,
		Attempts:      a.Attempts,
		Failures:      a.Failures,
		Observations:  a.Distribution.Count,
		Anomalies:     len(a.Anomalies.Flags),
		AnomalyStatus: a.Anomalies.Status,
		AnomalyMin:    a.Anomalies.MinSamples,
		Rejected:      rejected,
		Inconsistent:  a.Consistency.InconsistentPairs,
	}
}
