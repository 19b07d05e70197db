package collector_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/weatheragent/internal/collector"
	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/ratecontrol"
	"codeberg.org/mutker/weatheragent/internal/record"
	"codeberg.org/mutker/weatheragent/internal/session"
	"codeberg.org/mutker/weatheragent/internal/telemetry"
	"codeberg.org/mutker/weatheragent/internal/validator"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var targets = []weather.CityTarget{
	"Portland,ME,US",
	"Boston,MA,US",
	"Albany,NY,US",
	"Burlington,VT,US",
	"New York,NY,US",
}

type respondFunc func(city weather.CityTarget, index, call int) (weather.RawPayload, error)

type fakeFetcher struct {
	calls   map[weather.CityTarget]int
	respond respondFunc
}

func newFetcher(respond respondFunc) *fakeFetcher {
	return &fakeFetcher{calls: map[weather.CityTarget]int{}, respond: respond}
}

func (f *fakeFetcher) Fetch(_ context.Context, city weather.CityTarget, credential string) (weather.RawPayload, error) {
	if credential == "" {
		panic("empty credential")
	}
	f.calls[city]++

	index := 0
	for i, t := range targets {
		if t == city {
			index = i
		}
	}

	return f.respond(city, index, f.calls[city])
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type snapshotRecorder struct {
	snapshots []telemetry.CycleSnapshot
}

func (r *snapshotRecorder) Record(_ context.Context, s *telemetry.CycleSnapshot) error {
	r.snapshots = append(r.snapshots, *s)
	return nil
}

func (*snapshotRecorder) Close() error { return nil }

type failingStore struct{}

func (failingStore) Append(context.Context, string, []weather.Observation) error {
	return errors.New().WithMessage(errors.ErrOperationFailed, "disk full")
}

func (failingStore) Close() error { return nil }

func payload(city weather.CityTarget, temp, humidity float64) weather.RawPayload {
	return weather.RawPayload{
		"name": city.Name(),
		"main": map[string]any{"temp": temp, "humidity": humidity},
		"weather": []any{
			map[string]any{"description": "clear sky"},
		},
	}
}

// healthy varies temperature over 18..22 and humidity over 45..55.
func healthy(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
	step := float64((index+call)%5 - 2)
	return payload(city, 20+step, 50+2.5*step), nil
}

func fetchError(city weather.CityTarget) error {
	return errors.New().WithData(errors.ErrFetch, "503 from provider for "+city.String())
}

func rateConfig() ratecontrol.Config {
	cfg := ratecontrol.DefaultConfig()
	cfg.InitialDelay = 2 * time.Second
	cfg.MinDelay = 500 * time.Millisecond
	cfg.MaxDelay = 10 * time.Second
	cfg.Jitter = 0
	return cfg
}

type harness struct {
	collector *collector.Collector
	clock     *fakeClock
	telemetry *snapshotRecorder
}

func newHarness(t *testing.T, cfg collector.Config, f *fakeFetcher, opts ...collector.Option) *harness {
	t.Helper()
	return newHarnessWith(t, cfg, f, nil, opts...)
}

// newHarnessWith lets wrap replace pipeline stages before the collector is built.
func newHarnessWith(t *testing.T, cfg collector.Config, f *fakeFetcher, wrap func(*collector.Pipeline), opts ...collector.Option) *harness {
	t.Helper()

	builder, err := record.New(record.UnitsMetric)
	require.NoError(t, err)
	v, err := validator.New(validator.DefaultConfig())
	require.NoError(t, err)
	engine, err := quality.New(quality.DefaultConfig())
	require.NoError(t, err)

	h := &harness{
		clock:     &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		telemetry: &snapshotRecorder{},
	}

	opts = append([]collector.Option{
		collector.WithClock(h.clock),
		collector.WithTelemetry(h.telemetry),
		collector.WithLogger(logger.Nop()),
		collector.WithRand(nil),
	}, opts...)

	p := collector.Pipeline{
		Fetcher:   f,
		Builder:   builder,
		Validator: v,
		Quality:   engine,
		Rate:      rateConfig(),
	}
	if wrap != nil {
		wrap(&p)
	}

	h.collector, err = collector.New(cfg, p, opts...)
	require.NoError(t, err)

	return h
}

// failingValidator fails ValidateBatch on the given call.
type failingValidator struct {
	next   collector.BatchValidator
	failOn int
	calls  int
}

func (v *failingValidator) ValidateBatch(batch []weather.Observation) (validator.BatchResult, error) {
	v.calls++
	if v.calls == v.failOn {
		return validator.BatchResult{}, errors.New().WithMessage(errors.ErrInternal, "validator crashed")
	}
	return v.next.ValidateBatch(batch)
}

// failingAssessor fails Assess on the given call.
type failingAssessor struct {
	next   collector.Assessor
	failOn int
	calls  int
}

func (a *failingAssessor) Assess(in quality.Input) (quality.Assessment, error) {
	a.calls++
	if a.calls == a.failOn {
		return quality.Assessment{}, errors.New().WithMessage(errors.ErrQualityAssessment, "engine crashed")
	}
	return a.next.Assess(in)
}

func issueCount(final *session.Finalized, category weather.IssueCategory) int {
	for _, c := range final.IssueCounts {
		if c.Category == category {
			return c.Count
		}
	}
	return -1
}

func TestHealthyRunDecreasesDelayToMinimum(t *testing.T) {
	h := newHarness(t, collector.DefaultConfig(), newFetcher(healthy))

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, collector.StateDone, h.collector.State())
	assert.Equal(t, session.StopTargetObservations, final.StopReason)
	assert.Equal(t, 10, final.Cycles)
	assert.Len(t, final.Observations, 50)
	assert.InDelta(t, 1.0, final.Outcomes.SuccessRate, 1e-9)

	require.Len(t, h.telemetry.snapshots, 10)
	prev := 2 * time.Second
	for _, s := range h.telemetry.snapshots {
		assert.Equal(t, string(ratecontrol.AdjustDecrease), s.Adjustment)
		if prev > 500*time.Millisecond {
			assert.Less(t, s.Delay, prev, "cycle %d", s.Cycle)
		}
		assert.GreaterOrEqual(t, s.Delay, 500*time.Millisecond)
		prev = s.Delay
	}
	assert.Equal(t, 500*time.Millisecond, final.FinalDelay)

	assert.Equal(t, quality.AnomalyEvaluated, final.Anomalies.Status)
	assert.Empty(t, final.Anomalies.Flags)
	assert.Greater(t, final.Score.Aggregate, 0.9)
	assert.Equal(t, []string{"Collection successful with no major issues."}, final.Recommendations)

	// Every request but the first waits for the current delay.
	require.Len(t, h.clock.sleeps, 49)
	assert.Equal(t, 2*time.Second, h.clock.sleeps[0])
	assert.Equal(t, 500*time.Millisecond, h.clock.sleeps[48])
}

func TestLowSuccessIncreasesDelayToMaximum(t *testing.T) {
	f := newFetcher(func(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
		if index > 0 && call <= 3 {
			return nil, fetchError(city)
		}
		return healthy(city, index, call)
	})

	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 3
	h := newHarness(t, cfg, f)

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, session.StopMaxCycles, final.StopReason)
	require.Len(t, h.telemetry.snapshots, 3)

	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second}
	for i, s := range h.telemetry.snapshots {
		assert.InDelta(t, 0.2, s.SuccessRate, 1e-9)
		assert.Equal(t, string(ratecontrol.AdjustIncrease), s.Adjustment)
		assert.Equal(t, want[i], s.Delay)
	}

	assert.Len(t, final.Observations, 3)
	assert.Equal(t, 12, final.Outcomes.Failures)
	assert.Equal(t, 12, issueCount(final, weather.IssueFetchError))

	low := false
	for _, r := range final.Recommendations {
		if strings.HasPrefix(r, "Success rate is low") {
			low = true
		}
	}
	assert.True(t, low, "recommendations: %v", final.Recommendations)

	assert.Equal(t, quality.AnomalyInsufficientData, final.Anomalies.Status)
	assert.Empty(t, final.Anomalies.Flags)
	assert.Equal(t, 1, issueCount(final, weather.IssueInsufficientData))
}

func TestOutlierIsFlagged(t *testing.T) {
	f := newFetcher(func(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
		if index == 2 && call == 3 {
			return payload(city, 60, 50), nil
		}
		return payload(city, 20, 50), nil
	})

	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 3
	h := newHarness(t, cfg, f)

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	require.Len(t, final.Observations, 15)
	assert.Equal(t, 60.0, final.Distribution.Max)
	assert.Equal(t, 20.0, final.Distribution.Min)
	assert.LessOrEqual(t, final.Distribution.Min, final.Distribution.Mean)
	assert.LessOrEqual(t, final.Distribution.Mean, final.Distribution.Max)

	require.Len(t, final.Anomalies.Flags, 1)
	assert.Equal(t, 60.0, final.Anomalies.Flags[0].Observation.Temperature)
	assert.Equal(t, targets[2], final.Anomalies.Flags[0].Observation.Target)
}

func TestConfigurationErrorsStopBeforeRunning(t *testing.T) {
	h := newHarness(t, collector.DefaultConfig(), newFetcher(healthy))

	_, err := h.collector.Run(context.Background(), nil, "secret")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfiguration))
	assert.True(t, errors.HasCode(err, errors.ErrNoCities))

	_, err = h.collector.Run(context.Background(), targets, " ")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfiguration))
	assert.True(t, errors.HasCode(err, errors.ErrMissingAPIKey))

	assert.Equal(t, collector.StateIdle, h.collector.State())
	assert.Empty(t, h.telemetry.snapshots)
}

func TestRejectedRecordsAreCountedNotStored(t *testing.T) {
	f := newFetcher(func(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
		if index == 1 {
			return payload(city, 20, 150), nil
		}
		return payload(city, 20, 50), nil
	})

	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 2
	h := newHarness(t, cfg, f)

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Len(t, final.Observations, 8)
	assert.Equal(t, 2, final.Rejected)
	assert.Equal(t, 2, issueCount(final, weather.IssueValidationReject))
	for _, o := range final.Observations {
		assert.NotEqual(t, targets[1], o.Target)
	}
	for _, issue := range final.Issues {
		if issue.Category == weather.IssueValidationReject {
			assert.Equal(t, targets[1], issue.City)
			assert.True(t, strings.HasPrefix(issue.Detail, "Observation rejected by validation: "), issue.Detail)
			assert.Contains(t, issue.Detail, "humidity")
		}
	}
	// The fetch itself succeeded.
	assert.Equal(t, 0, final.Outcomes.Failures)
}

func TestMalformedPayloadIsAFailedAttempt(t *testing.T) {
	f := newFetcher(func(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
		if index == 0 {
			return weather.RawPayload{"name": city.Name()}, nil
		}
		return payload(city, 20, 50), nil
	})

	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 1
	h := newHarness(t, cfg, f)

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Len(t, final.Observations, 4)
	assert.Equal(t, 1, final.Outcomes.Failures)
	assert.Equal(t, 1, issueCount(final, weather.IssueMalformedPayload))
	assert.Equal(t, 0, issueCount(final, weather.IssueFetchError))
}

func TestEmptyCycleIsRecorded(t *testing.T) {
	f := newFetcher(func(city weather.CityTarget, _, _ int) (weather.RawPayload, error) {
		return nil, fetchError(city)
	})

	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 2
	h := newHarness(t, cfg, f)

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Empty(t, final.Observations)
	assert.Equal(t, 2, issueCount(final, weather.IssueEmptyBatch))
	assert.Equal(t, 10, issueCount(final, weather.IssueFetchError))
	assert.Contains(t, final.Recommendations, "No observations were collected: verify the API credential and city identifiers.")
}

func TestAbortDiscardsInFlightCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	f := newFetcher(func(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
		calls++
		if calls == 7 {
			cancel()
			return nil, ctx.Err()
		}
		return healthy(city, index, call)
	})

	h := newHarness(t, collector.DefaultConfig(), f)

	final, err := h.collector.Run(ctx, targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, session.StopAborted, final.StopReason)
	assert.Equal(t, 1, final.Cycles)
	assert.Len(t, final.Observations, 5)
	assert.Equal(t, 5, final.Outcomes.Attempts)
	assert.Equal(t, collector.StateDone, h.collector.State())
}

func TestStopWhenAllConditionsMet(t *testing.T) {
	cfg := collector.DefaultConfig()
	cfg.TargetObservations = 10
	cfg.MinPerCity = 3
	cfg.Mode = collector.StopAll
	h := newHarness(t, cfg, newFetcher(healthy))

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, session.StopSufficientData, final.StopReason)
	assert.Equal(t, 3, final.Cycles)
}

func TestStopOnMinQuality(t *testing.T) {
	cfg := collector.DefaultConfig()
	cfg.TargetObservations = 0
	cfg.MinQuality = 0.5
	h := newHarness(t, cfg, newFetcher(healthy))

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, session.StopMinQuality, final.StopReason)
	assert.Equal(t, 1, final.Cycles)
}

func TestStorageFailureIsNotFatal(t *testing.T) {
	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 2
	h := newHarness(t, cfg, newFetcher(healthy), collector.WithStore(failingStore{}))

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, 2, final.Cycles)
	assert.Len(t, final.Observations, 10)
	assert.Equal(t, 2, issueCount(final, weather.IssueStorageFailure))
}

func TestCyclePacing(t *testing.T) {
	cfg := collector.DefaultConfig()
	cfg.MaxCycles = 3
	cfg.Pacing = collector.PaceCycles
	h := newHarness(t, cfg, newFetcher(healthy))

	_, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{1600 * time.Millisecond, 1280 * time.Millisecond}, h.clock.sleeps)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, collector.DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*collector.Config)
	}{
		{"zero max cycles", func(c *collector.Config) { c.MaxCycles = 0 }},
		{"negative target", func(c *collector.Config) { c.TargetObservations = -1 }},
		{"quality above one", func(c *collector.Config) { c.MinQuality = 1.5 }},
		{"unknown mode", func(c *collector.Config) { c.Mode = "some" }},
		{"unknown pacing", func(c *collector.Config) { c.Pacing = "burst" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := collector.DefaultConfig()
			tt.mutate(&cfg)
			assert.True(t, errors.HasCode(cfg.Validate(), collector.ErrInvalidConfig))
		})
	}
}

func discardConfig() collector.Config {
	cfg := collector.DefaultConfig()
	cfg.TargetObservations = 0
	cfg.MaxCycles = 3
	return cfg
}

func TestValidatorFailureDiscardsCycle(t *testing.T) {
	h := newHarnessWith(t, discardConfig(), newFetcher(healthy), func(p *collector.Pipeline) {
		p.Validator = &failingValidator{next: p.Validator, failOn: 2}
	})

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, session.StopMaxCycles, final.StopReason)
	assert.Equal(t, 3, final.Cycles)
	assert.Len(t, final.Observations, 10)
	for _, o := range final.Observations {
		assert.NotEqual(t, 2, o.Cycle)
	}
	assert.Equal(t, 15, final.Outcomes.Attempts)
	assert.Equal(t, 15, final.Outcomes.Successes)
	assert.Equal(t, 1, issueCount(final, weather.IssueCycleDiscarded))

	require.Len(t, h.telemetry.snapshots, 3)
	discarded := h.telemetry.snapshots[1]
	assert.True(t, discarded.Discarded)
	assert.Equal(t, 0, discarded.Accepted)
	assert.Equal(t, 5, discarded.Successes)
	assert.Equal(t, string(ratecontrol.AdjustDecrease), discarded.Adjustment)
	assert.Less(t, discarded.Delay, h.telemetry.snapshots[0].Delay)

	next := h.telemetry.snapshots[2]
	assert.False(t, next.Discarded)
	assert.Equal(t, 5, next.Accepted)
	assert.Less(t, next.Delay, discarded.Delay)
}

func TestQualityFailureDropsAcceptedKeepsRejections(t *testing.T) {
	f := newFetcher(func(city weather.CityTarget, index, call int) (weather.RawPayload, error) {
		if call == 2 && index == 0 {
			return payload(city, 99, 50), nil
		}
		return healthy(city, index, call)
	})
	h := newHarnessWith(t, discardConfig(), f, func(p *collector.Pipeline) {
		p.Quality = &failingAssessor{next: p.Quality, failOn: 2}
	})

	final, err := h.collector.Run(context.Background(), targets, "secret")
	require.NoError(t, err)

	assert.Equal(t, 3, final.Cycles)
	assert.Len(t, final.Observations, 10)
	for _, o := range final.Observations {
		assert.NotEqual(t, 2, o.Cycle)
	}
	assert.Equal(t, 1, final.Rejected)
	assert.Equal(t, 15, final.Outcomes.Attempts)
	assert.Equal(t, 1, issueCount(final, weather.IssueValidationReject))
	assert.Equal(t, 1, issueCount(final, weather.IssueCycleDiscarded))
	assert.Len(t, final.QualityHistory, 2)

	require.Len(t, h.telemetry.snapshots, 3)
	assert.True(t, h.telemetry.snapshots[1].Discarded)
	assert.Equal(t, 1, h.telemetry.snapshots[1].Rejected)
	assert.Equal(t, 0, h.telemetry.snapshots[1].Accepted)
	assert.Less(t, h.telemetry.snapshots[1].Delay, h.telemetry.snapshots[0].Delay)
	assert.Equal(t, 5, h.telemetry.snapshots[2].Accepted)
}
