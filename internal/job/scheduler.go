package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultTaskTimeout bounds a single scheduled run.
const DefaultTaskTimeout = 30 * time.Second

// Scheduler runs background refreshes on cron specs. A run still going when
// its next slot fires is skipped rather than stacked.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler bounds every run by timeout, DefaultTaskTimeout when zero.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	logger := cron.PrintfLogger(cronLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a named task. spec accepts standard five-field expressions
// and descriptors such as "@every 5m".
func (s *Scheduler) Register(name, spec string, task func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	log.Info().Str("task", name).Str("spec", spec).Msg("scheduled task registered")
	return nil
}

// RunNow executes a task once outside the schedule.
func (s *Scheduler) RunNow(name string, task func(ctx context.Context) error) {
	s.run(name, task)
}

func (s *Scheduler) run(name string, task func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := task(ctx); err != nil {
		log.Warn().Err(err).Str("task", name).Dur("elapsed", time.Since(start)).Msg("scheduled task failed")
		return
	}
	log.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("scheduled task done")
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("tasks", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

type cronLogger struct{}

func (cronLogger) Printf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}
