package jobs

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kubeflow/data-catalog/pkg/catalog/status"
)

// Switcher is the interface the worker uses to switch due entities.
// It is satisfied by status.Switcher.
type Switcher interface {
	SwitchDue(ctx context.Context, now time.Time) (status.SwitchResult, error)
}

// LeaderCheck reports whether this replica may run switch passes.
type LeaderCheck func() bool

// StatusSwitchWorker periodically moves data entities whose status switch
// time has passed to their next status.
type StatusSwitchWorker struct {
	switcher Switcher
	runs     *RunStore
	cfg      *SwitchConfig
	isLeader LeaderCheck
	holder   string
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewStatusSwitchWorker creates a new worker. isLeader may be nil when leader
// election is disabled. runs may be nil to skip pass bookkeeping.
func NewStatusSwitchWorker(switcher Switcher, runs *RunStore, cfg *SwitchConfig, isLeader LeaderCheck, logger *slog.Logger) *StatusSwitchWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultSwitchConfig()
	}
	if isLeader == nil {
		isLeader = func() bool { return true }
	}
	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}
	return &StatusSwitchWorker{
		switcher: switcher,
		runs:     runs,
		cfg:      cfg,
		isLeader: isLeader,
		holder:   holder,
		logger:   logger,
		now:      time.Now,
	}
}

// Run starts the worker. It blocks until the context is cancelled, then
// waits for the running pass to finish.
func (w *StatusSwitchWorker) Run(ctx context.Context) {
	if w.switcher == nil || !w.cfg.Enabled {
		w.logger.Info("status switch worker disabled")
		return
	}

	w.logger.Info("status switch worker starting",
		"interval", w.cfg.Interval.String(),
		"batchSize", w.cfg.BatchSize,
		"deletedRetention", w.cfg.DeletedRetention.String())

	if w.runs != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.cleanupLoop(ctx)
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.switchLoop(ctx)
	}()

	<-ctx.Done()
	w.logger.Info("status switch worker shutting down, waiting for pass to finish")
	w.wg.Wait()
	w.logger.Info("status switch worker stopped")
}

func (w *StatusSwitchWorker) switchLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("status switch pass failed", "error", err)
			}
		}
	}
}

// RunOnce runs a single pass. It returns nil, nil when this replica is not
// the leader.
func (w *StatusSwitchWorker) RunOnce(ctx context.Context) (*status.SwitchResult, error) {
	if !w.isLeader() {
		w.logger.Debug("not the leader, skipping status switch pass")
		return nil, nil
	}

	started := w.now()
	var run *SwitchRun
	if w.runs != nil {
		r, err := w.runs.Start(ctx, w.holder, started)
		if err != nil {
			return nil, err
		}
		run = r
	}

	res, err := w.switcher.SwitchDue(ctx, started)
	durationMs := time.Since(started).Milliseconds()
	if err != nil {
		if run != nil {
			if failErr := w.runs.Fail(ctx, run.ID, err.Error(), durationMs); failErr != nil {
				w.logger.Error("failed to mark switch run as failed", "runID", run.ID, "error", failErr)
			}
		}
		return nil, err
	}

	if run != nil {
		if err := w.runs.Complete(ctx, run.ID, res.Switched, res.Purged, durationMs); err != nil {
			w.logger.Error("failed to mark switch run as complete", "runID", run.ID, "error", err)
		}
	}
	return &res, nil
}

// cleanupLoop periodically recovers stuck pass records and removes old ones.
func (w *StatusSwitchWorker) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.cfg.ClaimTimeout > 0 {
				recovered, err := w.runs.CleanupStuckRuns(ctx, w.cfg.ClaimTimeout)
				if err != nil {
					w.logger.Error("failed to cleanup stuck switch runs", "error", err)
				} else if recovered > 0 {
					w.logger.Info("recovered stuck switch runs", "count", recovered)
				}
			}

			if w.cfg.RetentionDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -w.cfg.RetentionDays)
				deleted, err := w.runs.DeleteOlderThan(ctx, cutoff)
				if err != nil {
					w.logger.Error("failed to delete old switch runs", "error", err)
				} else if deleted > 0 {
					w.logger.Info("deleted old switch runs", "count", deleted)
				}
			}
		}
	}
}
