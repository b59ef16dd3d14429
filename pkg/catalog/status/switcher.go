package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// SwitchStore is the persistence used by the Switcher.
type SwitchStore interface {
	ListForStatusSwitch(ctx context.Context, now time.Time, limit int) ([]entity.Asset, error)
	SaveStatuses(ctx context.Context, records []entity.StatusRecord) error
	SoftDelete(ctx context.Context, ids []int64) (int64, error)
}

// SwitchResult summarizes one switch pass.
type SwitchResult struct {
	Switched int   `json:"switched"`
	Purged   int64 `json:"purged"`
}

// Switcher moves entities whose switch time has passed to their next status.
type Switcher struct {
	store     SwitchStore
	lifecycle *Lifecycle
	batchSize int
	logger    *slog.Logger
}

// NewSwitcher creates a new Switcher. batchSize bounds the number of entities
// handled per pass; zero means unbounded.
func NewSwitcher(store SwitchStore, lifecycle *Lifecycle, batchSize int, logger *slog.Logger) *Switcher {
	if logger == nil {
		logger = slog.Default()
	}
	if lifecycle == nil {
		lifecycle = NewLifecycle(0)
	}
	return &Switcher{store: store, lifecycle: lifecycle, batchSize: batchSize, logger: logger}
}

// SwitchDue runs one pass at the given time.
func (s *Switcher) SwitchDue(ctx context.Context, now time.Time) (SwitchResult, error) {
	due, err := s.store.ListForStatusSwitch(ctx, now, s.batchSize)
	if err != nil {
		return SwitchResult{}, err
	}

	var records []entity.StatusRecord
	var purge []int64
	for i := range due {
		change, shouldPurge, ok := s.lifecycle.NextChange(due[i].Status, now)
		if !ok {
			continue
		}
		if shouldPurge {
			purge = append(purge, due[i].ID)
			continue
		}
		records = append(records, s.lifecycle.Apply(&due[i], change, now))
	}

	var res SwitchResult
	if len(records) > 0 {
		if err := s.store.SaveStatuses(ctx, records); err != nil {
			return res, err
		}
		res.Switched = len(records)
	}
	if len(purge) > 0 {
		n, err := s.store.SoftDelete(ctx, purge)
		if err != nil {
			return res, err
		}
		res.Purged = n
	}

	if res.Switched > 0 || res.Purged > 0 {
		s.logger.Info("switched data entity statuses", "switched", res.Switched, "purged", res.Purged)
	}
	return res, nil
}
