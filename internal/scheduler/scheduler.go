// Package scheduler runs periodic federation discovery on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/mxindex/internal/discovery"
	"github.com/jonesrussell/mxindex/internal/logger"
)

// runTimeout bounds a single scheduled discovery run.
const runTimeout = 30 * time.Minute

// Runner starts a discovery run.
type Runner interface {
	Run(ctx context.Context, seeds []string) (*discovery.Result, error)
}

// Recorder counts scheduled runs. A nil Recorder disables counting.
type Recorder interface {
	DiscoveryRun()
}

// Scheduler triggers discovery runs on a cron schedule. Overlapping runs are
// skipped: a tick that fires while a run is in flight is dropped.
type Scheduler struct {
	runner   Runner
	recorder Recorder
	seeds    []string
	log      logger.Interface
	cron     *cron.Cron
	running  sync.Mutex
}

// New creates a discovery scheduler.
func New(runner Runner, recorder Recorder, seeds []string, log logger.Interface) *Scheduler {
	// Standard 5-field cron format (minute hour day month weekday).
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		runner:   runner,
		recorder: recorder,
		seeds:    seeds,
		log:      log,
		cron:     cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start registers the schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("discovery scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.running.Lock()
	defer s.running.Unlock()
	s.log.Info("discovery scheduler stopped")
}

// runOnce executes one scheduled discovery run.
func (s *Scheduler) runOnce() {
	if !s.running.TryLock() {
		s.log.Warn("skipping scheduled discovery, previous run still in flight")
		return
	}
	defer s.running.Unlock()

	if s.recorder != nil {
		s.recorder.DiscoveryRun()
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	result, err := s.runner.Run(ctx, s.seeds)
	if err != nil {
		s.log.Error("scheduled discovery failed", "error", err)
		return
	}

	s.log.Info("scheduled discovery finished",
		"run_id", result.RunID,
		"added", result.Added,
		"probed", result.Probed,
	)
}
