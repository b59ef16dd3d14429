package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// Store is the persistence the controller needs.
type Store interface {
	GetAsset(ctx context.Context, id int64) (*entity.Asset, error)
	// SaveStatuses applies all records as one unit.
	SaveStatuses(ctx context.Context, records []entity.StatusRecord) error
}

// TargetResolver returns the entities a group status change cascades to.
type TargetResolver interface {
	PropagationTargets(ctx context.Context, groupOddrn string) ([]entity.Asset, error)
}

// Controller applies status changes.
type Controller struct {
	store     Store
	targets   TargetResolver
	lifecycle *Lifecycle
	logger    *slog.Logger
	now       func() time.Time
}

// NewController creates a new Controller.
func NewController(store Store, targets TargetResolver, lifecycle *Lifecycle, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if lifecycle == nil {
		lifecycle = NewLifecycle(0)
	}
	return &Controller{
		store:     store,
		targets:   targets,
		lifecycle: lifecycle,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyStatus validates and applies a status change to an entity. When
// change.Propagate is set and the entity is a group, the change is applied
// to the group and all its direct members in one atomic write. The applied
// records are returned.
func (c *Controller) ApplyStatus(ctx context.Context, id int64, change entity.StatusChange) ([]entity.StatusRecord, error) {
	if err := c.lifecycle.Validate(change); err != nil {
		return nil, err
	}

	a, err := c.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Hollow {
		return nil, entity.EntityNotFound(id)
	}

	targets := []entity.Asset{*a}
	if change.Propagate && a.HasRole(entity.RoleGroup) {
		members, err := c.targets.PropagationTargets(ctx, a.Oddrn)
		if err != nil {
			return nil, fmt.Errorf("resolve status propagation targets: %w", err)
		}
		targets = append(targets, members...)
	}

	now := c.now()
	seen := make(map[int64]bool, len(targets))
	records := make([]entity.StatusRecord, 0, len(targets))
	for i := range targets {
		if seen[targets[i].ID] {
			continue
		}
		seen[targets[i].ID] = true
		records = append(records, c.lifecycle.Apply(&targets[i], change, now))
	}

	if err := c.store.SaveStatuses(ctx, records); err != nil {
		return nil, err
	}

	c.logger.Info("data entity status changed",
		"id", id,
		"oddrn", a.Oddrn,
		"from", a.Status,
		"to", change.Status,
		"propagated", len(records)-1)
	return records, nil
}
