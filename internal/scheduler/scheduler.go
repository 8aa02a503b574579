// Package scheduler runs the daily scheduled-expense job on a cron spec.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"poupazap/internal/log"
	"poupazap/internal/services"
)

const jobTimeout = 30 * time.Minute

// DueProcessor is satisfied by services.ScheduledProcessor.
type DueProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (services.ScheduleRun, error)
}

type Config struct {
	// Spec is a standard 5-field cron expression.
	Spec     string
	Location *time.Location
}

// Scheduler wraps robfig/cron around a DueProcessor. Runs never overlap.
type Scheduler struct {
	cron      *cron.Cron
	processor DueProcessor
	spec      string
	loc       *time.Location
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	entryID cron.EntryID
}

func New(processor DueProcessor, cfg Config, logger *log.Logger) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.WithComponent(log.ComponentScheduler)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{
		cron:      c,
		processor: processor,
		spec:      cfg.Spec,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.mu.Lock()
	s.entryID = id
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(context.Background(), "Cron scheduler started",
		"spec", s.spec,
		"timezone", s.loc.String(),
		"next_run", s.NextRun())
	return nil
}

// Stop stops the loop; the returned context is done once a running job ends.
func (s *Scheduler) Stop() context.Context {
	s.logger.InfoContext(context.Background(), "Cron scheduler stopping")
	return s.cron.Stop()
}

// NextRun is zero until Start.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// RunNow processes due entries for the current day in the scheduler's
// timezone.
func (s *Scheduler) RunNow(ctx context.Context) (services.ScheduleRun, error) {
	now := s.now().In(s.loc)
	s.logger.InfoContext(ctx, "Starting scheduled expense run", "now", now.Format(time.RFC3339))

	run, err := s.processor.ProcessDue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scheduled expense run failed",
			log.FieldOperation, log.OpSchedule, log.FieldError, err)
		return run, err
	}
	return run, nil
}
