package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes decisions older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler prunes decision history on a cron schedule.
type Scheduler struct {
	pruner    Pruner
	schedule  string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	done    chan struct{}
	watcher sync.WaitGroup
}

// NewScheduler creates a retention scheduler. An empty schedule or a
// non-positive retention disables pruning.
func NewScheduler(pruner Pruner, schedule string, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pruner:    pruner,
		schedule:  schedule,
		retention: retention,
		logger:    logger.With(slog.String("component", "history.scheduler")),
		now:       time.Now,
	}
}

// Start registers the prune job on a fresh cron runner. It stops on ctx
// cancellation or Stop, and may be started again after stopping.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.retention <= 0 {
		s.logger.Info("history retention disabled")
		return nil
	}
	if s.cron != nil {
		return fmt.Errorf("retention scheduler already running")
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	runner := cron.New()
	if _, err := runner.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule pruning: %w", err)
	}

	runner.Start()
	s.cron = runner
	s.done = make(chan struct{})
	s.logger.Info("retention scheduler started", slog.String("schedule", s.schedule), slog.Duration("retention", s.retention))

	s.watcher.Add(1)
	go func(done chan struct{}) {
		defer s.watcher.Done()
		select {
		case <-ctx.Done():
			s.stop(done)
		case <-done:
		}
	}(s.done)
	return nil
}

// RunOnce prunes everything older than the retention window.
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("history pruning failed", slog.Any("error", err))
		return 0
	}
	if deleted > 0 {
		s.logger.Info("history pruned", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	}
	return deleted
}

// Stop halts the cron runner and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stop halts the runner only if it is still the one started with done.
func (s *Scheduler) stop(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.stopLocked()
	}
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	close(s.done)
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("retention scheduler stopped")
}

// NextRun reports when the prune job fires next, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
