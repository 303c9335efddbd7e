package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is the periodic work; it returns how many items it processed.
type Job func(ctx context.Context) (int, error)

// Scheduler periodically runs a Job.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	logger   *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler runs job every interval. If interval <= 0 it defaults to 1 hour.
func NewScheduler(name string, interval time.Duration, job Job, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("scheduler", name).Logger()
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  30 * time.Second,
		job:      job,
		logger:   &l,
		done:     make(chan struct{}),
	}
}

// Start begins the loop in a background goroutine; calling it twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce executes the job with a bounded timeout and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.job(runCtx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled job failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("processed", n).Msg("scheduled job finished")
	}
}

// Stop cancels the loop and waits for it to exit. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.logger.Info().Msg("scheduler stopped")
}
