package audit

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically cleans up old activity events.
type RetentionWorker struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewRetentionWorker creates a new RetentionWorker.
// retentionDays controls how many days of events to keep.
// The worker runs daily by default.
func NewRetentionWorker(store *Store, retentionDays int, logger *slog.Logger) *RetentionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionWorker{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  24 * time.Hour,
		logger:    logger,
	}
}

// Run starts the retention worker. It runs until the context is cancelled.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.store == nil || w.retention <= 0 {
		w.logger.Info("activity retention worker disabled",
			"hasStore", w.store != nil,
			"retentionDays", int(w.retention.Hours()/24))
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("activity retention worker started",
		"retentionDays", int(w.retention.Hours()/24),
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("activity retention worker stopped")
			return
		case <-ticker.C:
			w.Cleanup(ctx, time.Now())
		}
	}
}

// Cleanup performs a single retention pass relative to now.
func (w *RetentionWorker) Cleanup(ctx context.Context, now time.Time) int64 {
	cutoff := now.Add(-w.retention)
	deleted, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("activity retention cleanup failed", "error", err)
		return 0
	}
	if deleted > 0 {
		w.logger.Info("activity retention cleanup completed",
			"deleted", deleted,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted
}
