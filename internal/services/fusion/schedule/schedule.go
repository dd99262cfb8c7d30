// Package schedule runs the nightly fusion batch on the study plan's cron
package schedule

import (
	"context"
	"errors"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	ptime "github.com/open-sensor-research-platform/osrp/internal/platform/time"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/guardrails"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/plan"

	"github.com/go-co-op/gocron/v2"
)

// Nightly is the slice of the fusion ports the scheduler drives
type Nightly interface {
	Nightly(ctx context.Context, day time.Time) (domain.Run, error)
}

// Scheduler fires one batch per cron tick over the previous local day
type Scheduler struct {
	sched gocron.Scheduler
	job   gocron.Job
	svc   Nightly
	plan  plan.Plan
	// base is the context jobs run under; Shutdown cancels it
	base  context.Context
	stop  context.CancelFunc
}

// New registers the plan's schedule; a plan without one is InvalidArgument
func New(svc Nightly, p plan.Plan) (*Scheduler, error) {
	if p.Schedule == "" {
		return nil, perr.WithField(perr.InvalidArgf("plan %s has no schedule", p.Name), "schedule")
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(p.Location()))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "create scheduler")
	}
	base, stop := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, svc: svc, plan: p, base: base, stop: stop}

	// a tick that lands while the previous batch still runs is skipped
	s.job, err = sched.NewJob(
		gocron.CronJob(p.Schedule, false),
		gocron.NewTask(func() { _, _ = s.Fire(s.base, time.Now()) }),
		gocron.WithName("fusion-nightly-"+p.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		stop()
		_ = sched.Shutdown()
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeValidation, "schedule %q", p.Schedule), "schedule")
	}
	return s, nil
}

// Fire runs the batch for the local day before now
// lease contention is not an error; another scheduler owns the day
func (s *Scheduler) Fire(ctx context.Context, now time.Time) (domain.Run, error) {
	day := ptime.StartOfDay(now.In(s.plan.Location())).AddDate(0, 0, -1)
	log := logger.C(ctx).With().Str("plan", s.plan.Name).Str("day", day.Format(time.DateOnly)).Logger()

	run, err := s.svc.Nightly(ctx, day)
	switch {
	case errors.Is(err, guardrails.ErrLeaseHeld):
		return run, nil
	case err != nil:
		log.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("fusion: nightly batch failed")
		return run, err
	}
	log.Info().Str("run_id", run.ID).Int("units", len(run.Units)).Int("failed", run.Failed).Msg("fusion: nightly batch done")
	return run, nil
}

// NextRun reports when the job fires next
func (s *Scheduler) NextRun() (time.Time, error) { return s.job.NextRun() }

// Start begins firing; it does not block
func (s *Scheduler) Start() {
	s.sched.Start()
	next, _ := s.NextRun()
	logger.Named("schedule").Info().Str("plan", s.plan.Name).Str("cron", s.plan.Schedule).Time("next", next).Msg("fusion: scheduler started")
}

// Run starts the scheduler and blocks until ctx is done, then cancels and
// waits for a running batch
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	return s.Shutdown()
}

// Shutdown cancels running jobs and waits for them to return
func (s *Scheduler) Shutdown() error {
	s.stop()
	return s.sched.Shutdown()
}
