package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunStore provides database operations for status switch pass records.
type RunStore struct {
	db *gorm.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// AutoMigrate creates or updates the status_switch_runs table.
func (s *RunStore) AutoMigrate() error {
	return s.db.AutoMigrate(&SwitchRun{})
}

// Start records a new running pass.
func (s *RunStore) Start(ctx context.Context, holder string, startedAt time.Time) (*SwitchRun, error) {
	run := &SwitchRun{
		ID:        uuid.New().String(),
		Holder:    holder,
		State:     RunStateRunning,
		StartedAt: startedAt,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("start switch run: %w", err)
	}
	return run, nil
}

// Complete marks a pass as succeeded.
func (s *RunStore) Complete(ctx context.Context, runID string, switched int, purged int64, durationMs int64) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&SwitchRun{}).Where("id = ?", runID).Updates(map[string]any{
		"state":       RunStateSucceeded,
		"finished_at": now,
		"switched":    switched,
		"purged":      purged,
		"duration_ms": durationMs,
	})
	if result.Error != nil {
		return fmt.Errorf("complete switch run: %w", result.Error)
	}
	return nil
}

// Fail marks a pass as failed.
func (s *RunStore) Fail(ctx context.Context, runID string, errMsg string, durationMs int64) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&SwitchRun{}).Where("id = ?", runID).Updates(map[string]any{
		"state":       RunStateFailed,
		"finished_at": now,
		"last_error":  errMsg,
		"duration_ms": durationMs,
	})
	if result.Error != nil {
		return fmt.Errorf("fail switch run: %w", result.Error)
	}
	return nil
}

// Get retrieves a pass by ID.
func (s *RunStore) Get(ctx context.Context, runID string) (*SwitchRun, error) {
	var run SwitchRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get switch run: %w", err)
	}
	return &run, nil
}

// List returns the most recent passes, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]SwitchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	var runs []SwitchRun
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list switch runs: %w", err)
	}
	return runs, nil
}

// CleanupStuckRuns marks running passes started before the claim timeout
// as failed.
func (s *RunStore) CleanupStuckRuns(ctx context.Context, claimTimeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-claimTimeout)
	result := s.db.WithContext(ctx).Model(&SwitchRun{}).
		Where("state = ? AND started_at < ?", RunStateRunning, cutoff).
		Updates(map[string]any{
			"state":       RunStateFailed,
			"finished_at": time.Now(),
			"last_error":  "Timed out (stuck run recovery)",
		})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup stuck switch runs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOlderThan removes finished passes older than the given cutoff.
func (s *RunStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("state IN ? AND finished_at < ?",
		[]RunState{RunStateSucceeded, RunStateFailed}, cutoff).
		Delete(&SwitchRun{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old switch runs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
