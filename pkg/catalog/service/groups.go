package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/kubeflow/data-catalog/pkg/audit"
	"github.com/kubeflow/data-catalog/pkg/catalog/classification"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
	"github.com/kubeflow/data-catalog/pkg/catalog/store"
)

// CreateGroup creates a manually created domain group.
func (s *Service) CreateGroup(ctx context.Context, name string) (*entity.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entity.NewValidationError("group name is required")
	}
	g := &entity.Asset{
		Oddrn:           "//data-catalog/groups/" + uuid.New().String(),
		InternalName:    name,
		Roles:           []entity.Role{entity.RoleGroup},
		TypeID:          classification.DomainTypeID,
		Status:          entity.StatusUnassigned,
		ManuallyCreated: true,
	}
	if err := g.Validate(roleOf); err != nil {
		return nil, err
	}
	if err := s.store.CreateAsset(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("created group", "id", g.ID, "oddrn", g.Oddrn, "name", name)
	return g, nil
}

// SetInternalName sets the user-facing name of a data entity. An empty name
// falls back to the ingested name.
func (s *Service) SetInternalName(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	before := s.snapshot(ctx, id)
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.SetInternalName(ctx, id, name); err != nil {
			return err
		}
		if name == "" {
			return tx.MarkUnfilled(ctx, id, store.FilledInternalName)
		}
		return tx.MarkFilled(ctx, id, store.FilledInternalName)
	})
	if err != nil {
		return err
	}
	var oldName any
	if before != nil && before.InternalName != "" {
		oldName = before.InternalName
	}
	var newName any
	if name != "" {
		newName = name
	}
	s.record(ctx, id, audit.EventBusinessNameUpdated, oldName, newName)
	return nil
}
