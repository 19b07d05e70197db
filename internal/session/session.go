// Package session holds the run-scoped state of one collection run and its
// frozen, report-ready form.
package session

import (
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/google/uuid"
)

const ErrFrozen = errors.ErrSessionFrozen

type StopReason string

const (
	StopTargetObservations StopReason = "target_observations"
	StopMinPerCity         StopReason = "min_per_city"
	StopMinQuality         StopReason = "min_quality"
	StopSufficientData     StopReason = "sufficient_data"
	StopMaxCycles          StopReason = "max_cycles"
	StopAborted            StopReason = "aborted"
)

// CycleResult is everything one collection pass contributes to the session.
// Accepted is empty when the pass was discarded.
type CycleResult struct {
	Cycle      int
	Outcomes   []weather.AttemptOutcome
	Accepted   []weather.Observation
	Rejected   int
	Issues     []weather.Issue
	Assessment *quality.Assessment
	Delay      time.Duration
}

// Session is owned by the collection loop. Observations, outcomes and
// issues are append-only; after Freeze every mutation fails.
type Session struct {
	id           string
	targets      []weather.CityTarget
	startedAt    time.Time
	observations []weather.Observation
	outcomes     []weather.AttemptOutcome
	issues       []weather.Issue
	accepted     int
	rejected     int
	cycles       int
	delay        time.Duration
	history      []float64
	latest       *quality.Assessment
	frozen       bool
}

func New(targets []weather.CityTarget, delay time.Duration, startedAt time.Time) *Session {
	return &Session{
		id:        uuid.NewString(),
		targets:   append([]weather.CityTarget(nil), targets...),
		startedAt: startedAt,
		delay:     delay,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Cycles() int          { return s.cycles }
func (s *Session) Delay() time.Duration { return s.delay }
func (s *Session) Frozen() bool         { return s.frozen }
func (s *Session) Len() int             { return len(s.observations) }

func (s *Session) Targets() []weather.CityTarget {
	return append([]weather.CityTarget(nil), s.targets...)
}

func (s *Session) Observations() []weather.Observation {
	return append([]weather.Observation(nil), s.observations...)
}

func (s *Session) Outcomes() []weather.AttemptOutcome {
	return append([]weather.AttemptOutcome(nil), s.outcomes...)
}

func (s *Session) Issues() []weather.Issue {
	return append([]weather.Issue(nil), s.issues...)
}

// Latest returns the most recent committed assessment.
func (s *Session) Latest() (quality.Assessment, bool) {
	if s.latest == nil {
		return quality.Assessment{}, false
	}

	return *s.latest, true
}

// MinPerCity returns the smallest observation count over all targets.
func (s *Session) MinPerCity() int {
	if len(s.targets) == 0 {
		return 0
	}

	counts := make(map[weather.CityTarget]int, len(s.targets))
	for _, o := range s.observations {
		counts[o.Target]++
	}

	least := counts[s.targets[0]]
	for _, t := range s.targets[1:] {
		least = min(least, counts[t])
	}

	return least
}

// Input returns the quality engine input for the committed state.
func (s *Session) Input() quality.Input {
	return s.Preview(CycleResult{})
}

// Preview returns the quality engine input the session would have after
// committing c, without committing it.
func (s *Session) Preview(c CycleResult) quality.Input {
	obs := make([]weather.Observation, 0, len(s.observations)+len(c.Accepted))
	obs = append(obs, s.observations...)
	obs = append(obs, c.Accepted...)

	outcomes := make([]weather.AttemptOutcome, 0, len(s.outcomes)+len(c.Outcomes))
	outcomes = append(outcomes, s.outcomes...)
	outcomes = append(outcomes, c.Outcomes...)

	return quality.Input{
		Targets:      s.Targets(),
		Observations: obs,
		Outcomes:     outcomes,
		Accepted:     s.accepted + len(c.Accepted),
		Rejected:     s.rejected + c.Rejected,
	}
}

// Commit appends one cycle's results.
func (s *Session) Commit(c CycleResult) error {
	if s.frozen {
		return errors.New().WithData(ErrFrozen, s.id)
	}

	s.cycles++
	s.outcomes = append(s.outcomes, c.Outcomes...)
	s.observations = append(s.observations, c.Accepted...)
	s.issues = append(s.issues, c.Issues...)
	s.accepted += len(c.Accepted)
	s.rejected += c.Rejected
	s.delay = c.Delay
	if c.Assessment != nil {
		a := *c.Assessment
		s.latest = &a
		s.history = append(s.history, a.Score.Aggregate)
	}

	return nil
}

// RecordIssue appends an issue outside of a cycle commit.
func (s *Session) RecordIssue(issue weather.Issue) error {
	if s.frozen {
		return errors.New().WithData(ErrFrozen, s.id)
	}

	s.issues = append(s.issues, issue)

	return nil
}

// Freeze stops all further mutation and returns the report-ready view.
func (s *Session) Freeze(reason StopReason, final quality.Assessment, at time.Time) (*Finalized, error) {
	if s.frozen {
		return nil, errors.New().WithData(ErrFrozen, s.id)
	}
	s.frozen = true

	return &Finalized{
		ID:              s.id,
		Targets:         s.Targets(),
		Observations:    s.Observations(),
		Assessment:      final,
		Score:           final.Score,
		Distribution:    final.Distribution,
		Anomalies:       final.Anomalies,
		Outcomes:        summarize(s.targets, s.outcomes),
		Issues:          s.Issues(),
		IssueCounts:     countIssues(s.issues),
		Recommendations: append([]string(nil), final.Recommendations...),
		QualityHistory:  append([]float64(nil), s.history...),
		Accepted:        s.accepted,
		Rejected:        s.rejected,
		Cycles:          s.cycles,
		FinalDelay:      s.delay,
		StopReason:      reason,
		StartedAt:       s.startedAt,
		FinishedAt:      at,
	}, nil
}
