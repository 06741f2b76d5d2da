package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Runner performs one dispatch run for a reference instant.
type Runner interface {
	RunOnce(ctx context.Context, reference time.Time) error
}

// Scheduler periodically triggers dispatch runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	spec      string
	location  *time.Location
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// New creates a new Scheduler ticking on the cron spec in loc.
func New(spec string, loc *time.Location, runner Runner, logger *zap.SugaredLogger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		runner:    runner,
		spec:      spec,
		location:  loc,
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules the dispatch job and starts the underlying scheduler.
// Runs never overlap: a tick that lands while a run is active is skipped.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.spec).SingletonMode().Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Infow("scheduler: started", "spec", s.spec, "location", s.location.String())
	return nil
}

func (s *Scheduler) tick() {
	reference := s.now().In(s.location)
	s.logger.Debugw("scheduler: running dispatch job", "reference", reference)

	if err := s.runner.RunOnce(context.Background(), reference); err != nil {
		s.logger.Errorw("scheduler: dispatch run failed", "error", err)
		return
	}
	s.logger.Debugw("scheduler: completed dispatch job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
