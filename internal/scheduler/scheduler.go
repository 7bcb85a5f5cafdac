// Package scheduler triggers crawl cycles on a fixed daily cadence.
//
// The scheduler wraps a cron runner with a single daily entry (local
// midnight by default) plus RunNow for manual triggering. Cycle errors are
// logged and never stop the schedule; the next cycle simply tries again.
package scheduler

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/seminar-watch/internal/logger"
	"github.com/pfrederiksen/seminar-watch/internal/monitor"
	"github.com/robfig/cron/v3"
)

// DefaultSpec runs the crawl at local midnight.
const DefaultSpec = "0 0 * * *"

// Scheduler invokes a crawl cycle on schedule and on demand.
type Scheduler struct {
	runner *monitor.Runner
	cron   *cron.Cron
	spec   string
}

// New creates a scheduler for the runner. An empty spec uses DefaultSpec.
func New(runner *monitor.Runner, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		runner: runner,
		cron:   cron.New(),
		spec:   spec,
	}
}

// Start registers the daily entry and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		logger.Info("scheduled crawl starting", logger.Fields{"spec": s.spec})
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	logger.Info("scheduler started", logger.Fields{"spec": s.spec})
	return nil
}

// Stop stops the cron loop and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	logger.Info("scheduler stopped", nil)
}

// RunNow triggers one crawl cycle immediately. The per-page in-flight guard
// inside the runner keeps a manual run from overlapping the scheduled run
// on the same page.
func (s *Scheduler) RunNow(ctx context.Context) *monitor.Summary {
	summary, err := s.runner.CrawlAll(ctx)
	if err != nil {
		logger.Error("crawl cycle failed", nil, err)
		return nil
	}
	return summary
}
