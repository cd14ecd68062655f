package core

// scheduler.go runs run-history retention in the background.
//
// Each cycle deletes runs older than the configured age. Failures are logged
// and retried on the next tick; they never stop the server.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls run-history purging.
type RetentionConfig struct {
	MaxAge        time.Duration // Runs older than this are deleted (default: 30 days)
	CheckInterval time.Duration // How often to purge (default: 1h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = 30 * 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Hour
	}
	return c
}

// StartRetentionScheduler purges old runs immediately and then every
// CheckInterval until ctx is cancelled. It returns at once when no run
// store is configured.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	if s.runs == nil {
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("retention scheduler started",
		"max_age", cfg.MaxAge.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.purgeRuns(ctx, cfg.MaxAge)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.purgeRuns(ctx, cfg.MaxAge)
		}
	}
}

// purgeRuns performs one retention cycle and returns the rows removed.
func (s *Service) purgeRuns(ctx context.Context, maxAge time.Duration) int64 {
	start := time.Now()
	purged, err := s.runs.PurgeRuns(ctx, start.Add(-maxAge))
	if err != nil {
		slog.Error("purge runs failed", "error", err)
		return 0
	}
	slog.Info("purged old runs",
		"runs_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
