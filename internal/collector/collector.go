// Package collector runs the adaptive collection loop: it fetches every
// city once per cycle, validates and scores the results, paces requests with
// the rate controller and freezes the session once enough data is gathered.
package collector

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/fetcher"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/ratecontrol"
	"codeberg.org/mutker/weatheragent/internal/record"
	"codeberg.org/mutker/weatheragent/internal/session"
	"codeberg.org/mutker/weatheragent/internal/storage"
	"codeberg.org/mutker/weatheragent/internal/telemetry"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Pipeline bundles the stages a cycle runs through.
type Pipeline struct {
	Fetcher   fetcher.Fetcher
	Builder   *record.Builder
	Validator BatchValidator
	Quality   Assessor
	Rate      ratecontrol.Config
}

type Collector struct {
	cfg       Config
	pipeline  Pipeline
	store     storage.Store
	telemetry telemetry.Collector
	clock     Clock
	log       logger.Logger
	rng       *rand.Rand

	mu    sync.Mutex
	state State
}

func New(cfg Config, p Pipeline, opts ...Option) (*Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.Fetcher == nil || p.Builder == nil || p.Validator == nil || p.Quality == nil {
		return nil, errFactory.WithData(ErrInvalidConfig, "incomplete pipeline")
	}
	if err := p.Rate.Validate(); err != nil {
		return nil, err
	}

	c := &Collector{
		cfg:       cfg,
		pipeline:  p,
		store:     storage.Noop(),
		telemetry: telemetry.Noop(),
		clock:     systemClock{},
		log:       logger.Default(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// State returns the current state of the loop.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Collector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// run is the state owned by one Run call.
type run struct {
	session    *session.Session
	rate       *ratecontrol.Controller
	targets    []weather.CityTarget
	credential string
	requests   int
}

// Run collects until the stop condition fires or ctx is cancelled and
// returns the frozen session. Only configuration errors are returned; a
// cancelled ctx discards the in-flight cycle and freezes the session with
// StopAborted.
func (c *Collector) Run(ctx context.Context, targets []weather.CityTarget, credential string) (*session.Finalized, error) {
	errFactory := errors.New()

	if len(targets) == 0 {
		return nil, errFactory.Wrap(ErrConfiguration, errFactory.New(errors.ErrNoCities))
	}
	if strings.TrimSpace(credential) == "" {
		return nil, errFactory.Wrap(ErrConfiguration, errFactory.New(errors.ErrMissingAPIKey))
	}

	rc, err := ratecontrol.New(c.pipeline.Rate, len(targets))
	if err != nil {
		return nil, errFactory.Wrap(ErrConfiguration, err)
	}

	c.mu.Lock()
	if c.state != StateIdle && c.state != StateDone {
		c.mu.Unlock()
		return nil, errFactory.New(ErrAlreadyRunning)
	}
	c.state = StateRunning
	c.mu.Unlock()

	r := &run{
		session:    session.New(targets, rc.Delay(), c.clock.Now()),
		rate:       rc,
		targets:    targets,
		credential: credential,
	}

	c.log.Info().
		Str("session_id", r.session.ID()).
		Int("cities", len(targets)).
		Dur("delay", rc.Delay()).
		Int("max_cycles", c.cfg.MaxCycles).
		Int("target_observations", c.cfg.TargetObservations).
		Msg("Collection started")

	reason := c.loop(ctx, r)

	return c.finish(ctx, r, reason)
}

func (c *Collector) loop(ctx context.Context, r *run) session.StopReason {
	for cycle := 1; ; cycle++ {
		if cycle > 1 && c.cfg.Pacing == PaceCycles {
			if err := c.clock.Sleep(ctx, r.rate.Wait(c.rng)); err != nil {
				return session.StopAborted
			}
		}

		if !c.cycle(ctx, r, cycle) {
			c.log.Warn().
				Int("cycle", cycle).
				Msg("Collection aborted, discarding in-flight cycle")
			return session.StopAborted
		}

		if reason, stop := c.cfg.stopReason(r.session); stop {
			return reason
		}
	}
}

// cycle runs one pass over all cities and commits it. It returns false
// when ctx was cancelled before the pass completed; nothing is committed
// in that case.
func (c *Collector) cycle(ctx context.Context, r *run, cycle int) bool {
	c.setState(StateFetching)

	var (
		outcomes []weather.AttemptOutcome
		built    []weather.Observation
		issues   []weather.Issue
	)

	for _, target := range r.targets {
		if r.requests > 0 && c.cfg.Pacing == PaceRequests {
			if err := c.clock.Sleep(ctx, r.rate.Wait(c.rng)); err != nil {
				return false
			}
		}
		if ctx.Err() != nil {
			return false
		}
		r.requests++

		obs, issue, err := c.collect(ctx, r, target, cycle)
		if ctx.Err() != nil {
			return false
		}

		outcome := weather.AttemptOutcome{
			City:      target,
			Success:   err == nil,
			Timestamp: c.clock.Now(),
			Cycle:     cycle,
		}
		if err != nil {
			outcome.Err = err.Error()
			issues = append(issues, issue)
			c.log.Warn().
				Err(err).
				Str("city", target.String()).
				Int("cycle", cycle).
				Str("category", string(issue.Category)).
				Msg("Fetch attempt failed")
		} else {
			built = append(built, obs)
		}
		outcomes = append(outcomes, outcome)
	}

	c.setState(StateValidating)
	result := session.CycleResult{Cycle: cycle, Outcomes: outcomes}
	discarded := false

	batch, err := c.pipeline.Validator.ValidateBatch(built)
	switch {
	case errors.HasCode(err, errors.ErrEmptyBatch):
		issues = append(issues, c.issue(weather.IssueEmptyBatch, "", cycle, "no observations built in this cycle"))
	case err != nil:
		c.log.Error().
			Str("error_code", string(errors.CodeOf(err))).
			Err(err).
			Int("cycle", cycle).
			Msg("Validation failed, discarding cycle")
		issues = append(issues, c.issue(weather.IssueCycleDiscarded, "", cycle, err.Error()))
		discarded = true
	default:
		result.Accepted = batch.Accepted
		result.Rejected = len(batch.Rejected)
		for _, rej := range batch.Rejected {
			rejErr := errors.New().WithData(errors.ErrValidationReject, strings.Join(rej.Reasons, "; "))
			issues = append(issues, c.issue(weather.IssueValidationReject, rej.Observation.Target, cycle, rejErr.Error()))
			c.log.Warn().
				Str("error_code", string(errors.ErrValidationReject)).
				Str("city", rej.Observation.Target.String()).
				Int("cycle", cycle).
				Strs("reasons", rej.Reasons).
				Msg("Observation rejected")
		}
	}

	c.setState(StateScoring)
	r.rate.Record(outcomes...)
	decision := r.rate.Adjust()
	result.Delay = decision.Delay

	if !discarded {
		assessment, err := c.pipeline.Quality.Assess(r.session.Preview(result))
		if err != nil {
			c.log.Error().Err(err).Int("cycle", cycle).Msg("Quality assessment failed, discarding cycle")
			issues = append(issues, c.issue(weather.IssueCycleDiscarded, "", cycle, err.Error()))
			result.Accepted = nil
		} else {
			result.Assessment = &assessment
		}
	}
	result.Issues = issues

	if err := r.session.Commit(result); err != nil {
		c.log.Error().Err(err).Int("cycle", cycle).Msg("Failed to commit cycle")
		return true
	}

	c.persist(ctx, r, result)
	c.record(ctx, r, result, decision)
	c.progress(r, result, decision)
	c.setState(StateRunning)

	return true
}

// collect fetches and builds one observation. On failure it returns the
// issue describing it.
func (c *Collector) collect(ctx context.Context, r *run, target weather.CityTarget, cycle int) (weather.Observation, weather.Issue, error) {
	scheduled := c.clock.Now()

	raw, err := c.pipeline.Fetcher.Fetch(ctx, target, r.credential)
	if err != nil {
		category := weather.IssueFetchError
		if errors.HasCode(err, errors.ErrMalformedPayload) {
			category = weather.IssueMalformedPayload
		}
		return weather.Observation{}, c.issue(category, target, cycle, err.Error()), err
	}

	obs, err := c.pipeline.Builder.Build(raw, c.clock.Now())
	if err != nil {
		return weather.Observation{}, c.issue(weather.IssueMalformedPayload, target, cycle, err.Error()), err
	}

	obs.Target = target
	obs.Cycle = cycle
	obs.ScheduledAt = scheduled

	return obs, weather.Issue{}, nil
}

func (c *Collector) persist(ctx context.Context, r *run, result session.CycleResult) {
	if len(result.Accepted) == 0 {
		return
	}

	if err := c.store.Append(ctx, r.session.ID(), result.Accepted); err != nil {
		c.log.Warn().Err(err).Int("cycle", result.Cycle).Msg("Failed to persist observations")
		c.recordIssue(r, c.issue(weather.IssueStorageFailure, "", result.Cycle, err.Error()))
	}
}

func (c *Collector) record(ctx context.Context, r *run, result session.CycleResult, d ratecontrol.Decision) {
	snapshot := &telemetry.CycleSnapshot{
		SessionID:    r.session.ID(),
		Cycle:        result.Cycle,
		Timestamp:    c.clock.Now(),
		Attempts:     len(result.Outcomes),
		Successes:    successes(result.Outcomes),
		Accepted:     len(result.Accepted),
		Rejected:     result.Rejected,
		Observations: r.session.Len(),
		SuccessRate:  d.SuccessRate,
		Delay:        d.Delay,
		Adjustment:   string(d.Adjustment),
		Discarded:    result.Assessment == nil,
	}
	if result.Assessment != nil {
		snapshot.Quality = result.Assessment.Score.Aggregate
	}

	if err := c.telemetry.Record(ctx, snapshot); err != nil {
		c.log.Warn().Err(err).Int("cycle", result.Cycle).Msg("Failed to record telemetry")
		c.recordIssue(r, c.issue(weather.IssueTelemetryFailure, "", result.Cycle, err.Error()))
	}
}

func (c *Collector) progress(r *run, result session.CycleResult, d ratecontrol.Decision) {
	ok := successes(result.Outcomes)

	event := c.log.Info().
		Int("cycle", result.Cycle).
		Int("successes", ok).
		Int("failures", len(result.Outcomes)-ok).
		Int("accepted", len(result.Accepted)).
		Int("rejected", result.Rejected).
		Int("observations", r.session.Len()).
		Float64("success_rate", d.SuccessRate).
		Dur("delay", d.Delay).
		Str("adjustment", string(d.Adjustment))
	if result.Assessment != nil {
		event = event.Float64("quality", result.Assessment.Score.Aggregate)
	}
	event.Msg("Cycle complete")
}

// finish scores the committed observations and freezes the session.
func (c *Collector) finish(ctx context.Context, r *run, reason session.StopReason) (*session.Finalized, error) {
	c.setState(StateStopping)

	final, err := c.pipeline.Quality.Assess(r.session.Input())
	if err != nil {
		c.log.Error().Err(err).Msg("Final quality assessment failed, using last cycle's assessment")
		final, _ = r.session.Latest()
	}

	if err := final.Anomalies.Err(); err != nil {
		c.recordIssue(r, c.issue(weather.IssueInsufficientData, "", r.session.Cycles(), err.Error()))
	}

	if ctx.Err() != nil {
		c.log.Info().Err(ctx.Err()).Msg("Freezing session after abort")
	}

	finalized, err := r.session.Freeze(reason, final, c.clock.Now())
	if err != nil {
		c.setState(StateDone)
		return nil, err
	}

	c.setState(StateDone)

	c.log.Info().
		Str("session_id", finalized.ID).
		Str("stop_reason", string(reason)).
		Int("cycles", finalized.Cycles).
		Int("observations", len(finalized.Observations)).
		Float64("success_rate", finalized.Outcomes.SuccessRate).
		Float64("quality", finalized.Score.Aggregate).
		Int("anomalies", len(finalized.Anomalies.Flags)).
		Msg("Collection finished")

	return finalized, nil
}

func (c *Collector) recordIssue(r *run, issue weather.Issue) {
	if err := r.session.RecordIssue(issue); err != nil {
		c.log.Debug().Err(err).Msg("Dropped issue for frozen session")
	}
}

func (c *Collector) issue(category weather.IssueCategory, city weather.CityTarget, cycle int, detail string) weather.Issue {
	return weather.Issue{
		Category:  category,
		City:      city,
		Cycle:     cycle,
		Detail:    detail,
		Timestamp: c.clock.Now(),
	}
}

func successes(outcomes []weather.AttemptOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Success {
			n++
		}
	}

	return n
}
