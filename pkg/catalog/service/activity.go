package service

import (
	"context"
	"time"

	"github.com/kubeflow/data-catalog/pkg/audit"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// ActivityLog records user-driven data entity changes. It is satisfied by
// *audit.Store.
type ActivityLog interface {
	Record(ctx context.Context, entityID int64, eventType audit.EventType, oldValue, newValue any) error
}

// SetActivityLog enables activity recording. A nil log disables it.
func (s *Service) SetActivityLog(l ActivityLog) {
	s.activity = l
}

type statusValue struct {
	Status         entity.Status `json:"status"`
	SwitchTime     *time.Time    `json:"statusSwitchTime,omitempty"`
	PropagatedFrom int64         `json:"propagatedFrom,omitempty"`
}

type groupValue struct {
	Action  string `json:"action"`
	GroupID int64  `json:"groupId"`
}

// record appends an activity event. Failures are logged and never fail the
// change itself.
func (s *Service) record(ctx context.Context, id int64, eventType audit.EventType, oldValue, newValue any) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, id, eventType, oldValue, newValue); err != nil {
		s.logger.Warn("failed to record activity", "id", id, "event", eventType, "error", err)
	}
}

// snapshot loads the current state of a data entity for the activity log.
// It returns nil when recording is disabled or the entity is missing.
func (s *Service) snapshot(ctx context.Context, id int64) *entity.Asset {
	if s.activity == nil {
		return nil
	}
	a, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil
	}
	return a
}

func (s *Service) recordStatus(ctx context.Context, id int64, before *entity.Asset, records []entity.StatusRecord) {
	var oldValue any
	if before != nil {
		oldValue = statusValue{Status: before.Status, SwitchTime: before.StatusSwitchTime}
	}
	for _, r := range records {
		v := statusValue{Status: r.Status, SwitchTime: r.SwitchTime}
		if r.ID != id {
			v.PropagatedFrom = id
			s.record(ctx, r.ID, audit.EventStatusUpdated, nil, v)
			continue
		}
		s.record(ctx, r.ID, audit.EventStatusUpdated, oldValue, v)
	}
}
