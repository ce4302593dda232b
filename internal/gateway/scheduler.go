package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// keepUsageMonths is how many months of usage history the rollover keeps.
const keepUsageMonths = 12

// rolloverTimeout bounds one scheduled rollover run.
const rolloverTimeout = 2 * time.Minute

// Scheduler runs the monthly usage rollover on a robfig/cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	ledger Ledger
	onRun  func(err error)

	mu      sync.Mutex
	lastRun time.Time
	entry   cron.EntryID
}

func newScheduler(ledger Ledger, onRun func(error)) *Scheduler {
	return &Scheduler{cron: cron.New(), ledger: ledger, onRun: onRun}
}

// validate checks that expr is parseable by robfig/cron without adding it
// permanently to any runner.
func validate(expr string) error {
	tmp := cron.New()
	id, err := tmp.AddFunc(expr, func() {})
	if err != nil {
		return err
	}
	tmp.Remove(id)
	return nil
}

// Start registers the rollover job under expr and starts the cron runner.
// An empty expr starts nothing.
func (s *Scheduler) Start(expr string) error {
	if expr == "" {
		slog.Info("Usage rollover schedule disabled")
		return nil
	}
	if err := validate(expr); err != nil {
		return fmt.Errorf("invalid rollover schedule %q: %w", expr, err)
	}
	id, err := s.cron.AddFunc(expr, func() { s.RunOnce(context.Background()) })
	if err != nil {
		return fmt.Errorf("registering rollover: %w", err)
	}
	s.mu.Lock()
	s.entry = id
	s.mu.Unlock()

	s.cron.Start()
	slog.Info("Gateway scheduler started", "rollover", expr)
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one rollover immediately.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, rolloverTimeout)
	defer cancel()

	err := s.ledger.Rollover(ctx, keepUsageMonths)
	if err != nil {
		slog.Warn("Usage rollover failed", "error", err)
	} else {
		slog.Info("Usage rollover complete", "keep_months", keepUsageMonths)
	}
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()
	if s.onRun != nil {
		s.onRun(err)
	}
}

// NextRun reports when the rollover fires next; zero when unscheduled.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// LastRun reports when the rollover last ran.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
