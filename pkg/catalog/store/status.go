package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// SaveStatuses applies every status record in one transaction. Either all
// records are written or none is.
func (s *Store) SaveStatuses(ctx context.Context, records []entity.StatusRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			err := tx.Model(&DataEntityRecord{}).
				Where("id = ?", r.ID).
				Updates(map[string]any{
					"status":             string(r.Status),
					"status_switch_time": r.SwitchTime,
					"status_updated_at":  r.StatusUpdatedAt,
				}).Error
			if err != nil {
				return fmt.Errorf("save status of data entity %d: %w", r.ID, err)
			}
		}
		return nil
	})
}

// ListForStatusSwitch returns live entities in a switchable status whose
// switch time is at or before now.
func (s *Store) ListForStatusSwitch(ctx context.Context, now time.Time, limit int) ([]entity.Asset, error) {
	switchable := make([]string, 0, len(entity.AllStatuses))
	for _, st := range entity.AllStatuses {
		if st.Switchable() {
			switchable = append(switchable, string(st))
		}
	}
	query := s.db.WithContext(ctx).
		Where("status IN ? AND status_switch_time IS NOT NULL AND status_switch_time <= ?", switchable, now).
		Order("status_switch_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []DataEntityRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list data entities for status switch: %w", err)
	}
	return toAssets(records)
}

// SoftDelete hides data entities from every lookup.
func (s *Store) SoftDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&DataEntityRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("soft delete data entities: %w", res.Error)
	}
	return res.RowsAffected, nil
}
