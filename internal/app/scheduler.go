package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// RunScheduled runs the pipeline on the given cron schedule until the
// context is cancelled. Overlapping runs are skipped, not queued.
func RunScheduled(ctx context.Context, schedule string, p *Pipeline, logger *slog.Logger) error {
	var running sync.Mutex

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if !running.TryLock() {
			logger.Warn("previous run still in progress, skipping this tick")
			return
		}
		defer running.Unlock()

		logger.Info("scheduled run starting", "schedule", schedule)
		if err := p.Run(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
		} else {
			logger.Info("scheduled run finished")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("scheduler started", "schedule", schedule)

	<-ctx.Done()
	// Let an in-flight job observe cancellation, then wait for it.
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
	return nil
}
