package processing

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indepth/internal/common"
)

// DefaultSchedule runs every 6 hours
const DefaultSchedule = "0 0 */6 * * *"

// RunFunc is one scheduled pass (scrape, download and process)
type RunFunc func(ctx context.Context) error

// Scheduler handles periodic report processing
type Scheduler struct {
	run     RunFunc
	cron    *cron.Cron
	timeout time.Duration
	logger  arbor.ILogger

	// runs derive from ctx; Stop cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewScheduler creates a new processing scheduler. Each run is bounded by timeout.
func NewScheduler(run RunFunc, timeout time.Duration, logger arbor.ILogger) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		run:     run,
		cron:    cron.New(cron.WithSeconds()),
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the scheduled processing
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.trigger() }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Report processing scheduler started")

	return nil
}

// Stop cancels any in-flight run, stops the scheduler and waits for the run to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info().Msg("Report processing scheduler stopped")
}

// RunNow triggers an immediate processing run
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate processing run")
	s.wg.Add(1)
	common.SafeGo(s.logger, "processing-run", func() {
		defer s.wg.Done()
		s.trigger()
	})
}

// trigger runs once unless a previous run is still going
func (s *Scheduler) trigger() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous processing run still active, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.ctx.Err() != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info().Msg("Starting scheduled processing")

	if err := s.run(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled processing failed")
		return true
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Scheduled processing completed")
	return true
}
