package core

// scheduler.go runs history retention in the background.
//
// Each cycle deletes runs older than the retention window. The scheduler
// runs once on start, then every CheckInterval until its context is
// cancelled. A failed purge is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes runs older than a number of days and reports how many.
type Purger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// RetentionConfig holds configuration for the retention scheduler.
type RetentionConfig struct {
	RetentionDays int           // Days to keep recorded runs (default: 30)
	CheckInterval time.Duration // How often to purge (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler blocks, purging old runs until ctx is cancelled.
// Run it in its own goroutine.
func StartRetentionScheduler(ctx context.Context, p Purger, cfg RetentionConfig, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	logger.Info("retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval,
	)

	runRetentionJob(ctx, p, cfg, logger)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			runRetentionJob(ctx, p, cfg, logger)
		}
	}
}

func runRetentionJob(ctx context.Context, p Purger, cfg RetentionConfig, logger *slog.Logger) {
	start := time.Now()
	purged, err := p.PurgeOlderThan(ctx, cfg.RetentionDays)
	if err != nil {
		logger.Error("purge failed", "error", err)
		return
	}
	logger.Info("purged validation runs",
		"runs_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
