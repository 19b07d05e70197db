package session

import (
	"time"

	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Finalized is the frozen session handed to report assemblers.
type Finalized struct {
	ID              string
	Targets         []weather.CityTarget
	Observations    []weather.Observation
	Assessment      quality.Assessment
	Score           quality.Score
	Distribution    quality.Distribution
	Anomalies       quality.AnomalyReport
	Outcomes        OutcomeSummary
	Issues          []weather.Issue
	IssueCounts     []IssueCount
	Recommendations []string
	QualityHistory  []float64
	Accepted        int
	Rejected        int
	Cycles          int
	FinalDelay      time.Duration
	StopReason      StopReason
	StartedAt       time.Time
	FinishedAt      time.Time
}

// AverageQuality is the mean of the per-cycle aggregate scores.
func (f *Finalized) AverageQuality() float64 {
	if len(f.QualityHistory) == 0 {
		return 0
	}

	var sum float64
	for _, s := range f.QualityHistory {
		sum += s
	}

	return sum / float64(len(f.QualityHistory))
}

type CityOutcome struct {
	City      weather.CityTarget `json:"city"`
	Attempts  int                `json:"attempts"`
	Successes int                `json:"successes"`
}

type OutcomeSummary struct {
	Attempts    int           `json:"attempts"`
	Successes   int           `json:"successes"`
	Failures    int           `json:"failures"`
	SuccessRate float64       `json:"success_rate"`
	PerCity     []CityOutcome `json:"per_city"`
}

type IssueCount struct {
	Category weather.IssueCategory `json:"category"`
	Count    int                   `json:"count"`
}

func summarize(targets []weather.CityTarget, outcomes []weather.AttemptOutcome) OutcomeSummary {
	var sum OutcomeSummary

	index := make(map[weather.CityTarget]int, len(targets))
	for _, t := range targets {
		index[t] = len(sum.PerCity)
		sum.PerCity = append(sum.PerCity, CityOutcome{City: t})
	}

	for _, o := range outcomes {
		sum.Attempts++
		i, ok := index[o.City]
		if !ok {
			i = len(sum.PerCity)
			index[o.City] = i
			sum.PerCity = append(sum.PerCity, CityOutcome{City: o.City})
		}
		sum.PerCity[i].Attempts++
		if o.Success {
			sum.Successes++
			sum.PerCity[i].Successes++
		}
	}

	sum.Failures = sum.Attempts - sum.Successes
	if sum.Attempts > 0 {
		sum.SuccessRate = float64(sum.Successes) / float64(sum.Attempts)
	}

	return sum
}

// countIssues returns one entry per known category, zero counts included,
// so a report always enumerates every category.
func countIssues(issues []weather.Issue) []IssueCount {
	counts := make(map[weather.IssueCategory]int)
	for _, i := range issues {
		counts[i.Category]++
	}

	out := make([]IssueCount, 0, len(weather.IssueCategories))
	for _, c := range weather.IssueCategories {
		out = append(out, IssueCount{Category: c, Count: counts[c]})
	}

	return out
}
