// Package groups maintains the containment hierarchy between data entity
// groups and their members.
package groups

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
	"github.com/kubeflow/data-catalog/pkg/catalog/store"
)

// Manager owns group edges. Membership mutations are serialized and each
// one runs in a single transaction, so the existence check, the cycle check
// and the insert are atomic.
type Manager struct {
	store  *store.Store
	mu     sync.Mutex
	logger *slog.Logger
}

// NewManager creates a new Manager.
func NewManager(s *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: s, logger: logger}
}

// AddMember adds a manual edge from a manually created group to a member
// and returns the group. The member must not be the group itself or one of
// its ancestors.
func (m *Manager) AddMember(ctx context.Context, groupID, memberID int64) (*entity.AssetRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var groupRef entity.AssetRef
	err := m.store.Transaction(ctx, func(tx *store.Store) error {
		member, group, err := loadPair(ctx, tx, groupID, memberID)
		if err != nil {
			return err
		}

		if member.Oddrn == group.Oddrn {
			return entity.NewValidationError(fmt.Sprintf("data entity %d cannot be a member of itself", groupID))
		}
		ancestor, err := tx.IsAncestor(ctx, member.Oddrn, group.Oddrn)
		if err != nil {
			return err
		}
		if ancestor {
			return entity.NewValidationError(fmt.Sprintf(
				"adding data entity %d to group %d would create a cycle", memberID, groupID))
		}

		exists, err := tx.EdgeExists(ctx, group.Oddrn, member.Oddrn)
		if err != nil {
			return err
		}
		if exists {
			return entity.NewConflictError("data entity is already in this group")
		}
		created, err := tx.CreateEdge(ctx, entity.GroupEdge{GroupOddrn: group.Oddrn, EntityOddrn: member.Oddrn, Manual: true})
		if err != nil {
			return err
		}
		if !created {
			return entity.NewConflictError("data entity is already in this group")
		}

		if err := tx.MarkFilled(ctx, member.ID, store.FilledCustomGroup); err != nil {
			return err
		}
		groupRef = group.Ref()
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("added data entity to group", "group", groupRef.Oddrn, "member", memberID)
	return &groupRef, nil
}

// RemoveMember removes the edge from a manually created group to a member
// and returns the member's remaining parent edges. The custom group marker
// of the member is cleared when none of them is manual.
func (m *Manager) RemoveMember(ctx context.Context, groupID, memberID int64) ([]entity.GroupEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var remaining []entity.GroupEdge
	err := m.store.Transaction(ctx, func(tx *store.Store) error {
		member, group, err := loadPair(ctx, tx, groupID, memberID)
		if err != nil {
			return err
		}

		removed, err := tx.DeleteEdge(ctx, group.Oddrn, member.Oddrn)
		if err != nil {
			return err
		}
		if removed == 0 {
			return entity.NewNotFoundError(fmt.Sprintf("data entity %d is not a member of group %d", memberID, groupID))
		}

		remaining, err = tx.ParentEdges(ctx, member.Oddrn)
		if err != nil {
			return err
		}
		if !anyManual(remaining) {
			return tx.MarkUnfilled(ctx, member.ID, store.FilledCustomGroup)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("removed data entity from group", "group", groupID, "member", memberID, "remainingParents", len(remaining))
	return remaining, nil
}

// Locked runs fn while holding the membership lock. Ingestion wraps its
// transaction in it so derived edges are written under the same lock as
// manual ones.
func (m *Manager) Locked(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

// SyncDerivedMembers makes the ingested member list of a group its set of
// derived edges inside tx. Listed members get an edge, derived edges to
// members no longer listed are removed and manual edges are kept. A member
// that is already an ancestor of the group is skipped. The caller must run
// it through Locked.
func (m *Manager) SyncDerivedMembers(ctx context.Context, tx *store.Store, groupOddrn string, members []string) error {
	if _, err := tx.DeleteDerivedEdges(ctx, groupOddrn, members); err != nil {
		return err
	}
	for _, member := range members {
		ancestor, err := tx.IsAncestor(ctx, member, groupOddrn)
		if err != nil {
			return err
		}
		if ancestor {
			m.logger.Warn("skipping ingested group member that would create a cycle", "group", groupOddrn, "member", member)
			continue
		}
		if _, err := tx.CreateEdge(ctx, entity.GroupEdge{GroupOddrn: groupOddrn, EntityOddrn: member}); err != nil {
			return err
		}
	}
	return nil
}

// DirectMembers returns the live direct members of a group.
func (m *Manager) DirectMembers(ctx context.Context, groupOddrn string) ([]entity.AssetRef, error) {
	members, err := m.store.FetchGroupMembers(ctx, []string{groupOddrn})
	if err != nil {
		return nil, err
	}
	return members[groupOddrn], nil
}

// DescendantCountExcludingDirect counts entities below a group that are not
// its direct members.
func (m *Manager) DescendantCountExcludingDirect(ctx context.Context, groupOddrn string) (int64, error) {
	counts, err := m.store.CountGroupDescendants(ctx, []string{groupOddrn})
	if err != nil {
		return 0, err
	}
	return counts[groupOddrn], nil
}

// DirectMembersOf is the bulk form of DirectMembers.
func (m *Manager) DirectMembersOf(ctx context.Context, groupOddrns []string) (map[string][]entity.AssetRef, error) {
	return m.store.FetchGroupMembers(ctx, groupOddrns)
}

// DescendantCounts is the bulk form of DescendantCountExcludingDirect.
func (m *Manager) DescendantCounts(ctx context.Context, groupOddrns []string) (map[string]int64, error) {
	return m.store.CountGroupDescendants(ctx, groupOddrns)
}

// ParentsOf returns the live parent groups of each data entity.
func (m *Manager) ParentsOf(ctx context.Context, oddrns []string) (map[string][]entity.AssetRef, error) {
	return m.store.FetchParentGroups(ctx, oddrns)
}

// PropagationTargets returns the live direct members of a group, manual and
// derived, that a status change on the group cascades to.
func (m *Manager) PropagationTargets(ctx context.Context, groupOddrn string) ([]entity.Asset, error) {
	oddrns, err := m.store.MemberOddrns(ctx, groupOddrn)
	if err != nil {
		return nil, err
	}
	return m.store.FetchAssets(ctx, oddrns)
}

func loadPair(ctx context.Context, tx *store.Store, groupID, memberID int64) (*entity.Asset, *entity.Asset, error) {
	member, err := tx.GetAsset(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil || member.Hollow {
		return nil, nil, entity.EntityNotFound(memberID)
	}
	group, err := tx.GetAsset(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if group == nil || group.Hollow {
		return nil, nil, entity.EntityNotFound(groupID)
	}
	if !IsManuallyCreatedGroup(group) {
		return nil, nil, entity.NewValidationError(fmt.Sprintf("data entity %d is not a manually created group", groupID))
	}
	return member, group, nil
}

// IsManuallyCreatedGroup reports whether the entity is a group created by a
// user rather than by ingestion.
func IsManuallyCreatedGroup(a *entity.Asset) bool {
	return a.ManuallyCreated && a.HasRole(entity.RoleGroup)
}

func anyManual(edges []entity.GroupEdge) bool {
	for _, e := range edges {
		if e.Manual {
			return true
		}
	}
	return false
}
