package store

import (
	"context"
	"fmt"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// Statistics counts live data entities by role and type.
type Statistics struct {
	Total         int64
	ByRoleAndType map[entity.Role]map[entity.TypeID]int64
}

// Statistics aggregates live, non-hollow data entities by role and type.
// An entity holding several roles is counted once per role.
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	var rows []struct {
		Roles  JSONStringSlice `gorm:"column:entity_classes"`
		TypeID int             `gorm:"column:type_id"`
	}
	err := s.db.WithContext(ctx).Model(&DataEntityRecord{}).
		Select("entity_classes, type_id").
		Where("hollow = ?", false).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("collect data entity statistics: %w", err)
	}

	st := &Statistics{
		Total:         int64(len(rows)),
		ByRoleAndType: make(map[entity.Role]map[entity.TypeID]int64),
	}
	for _, r := range rows {
		for _, role := range r.Roles {
			byType := st.ByRoleAndType[entity.Role(role)]
			if byType == nil {
				byType = make(map[entity.TypeID]int64)
				st.ByRoleAndType[entity.Role(role)] = byType
			}
			byType[entity.TypeID(r.TypeID)]++
		}
	}
	return st, nil
}

// DomainInfo is a domain group with its number of direct members.
type DomainInfo struct {
	Domain        entity.AssetRef `json:"domain"`
	ChildrenCount int64           `json:"childrenCount"`
}

// Domains lists live groups of the given type with their live direct member
// counts.
func (s *Store) Domains(ctx context.Context, domainType entity.TypeID) ([]DomainInfo, error) {
	var records []DataEntityRecord
	err := s.db.WithContext(ctx).
		Where("type_id = ? AND hollow = ?", int(domainType), false).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	oddrns := make([]string, 0, len(records))
	for _, r := range records {
		oddrns = append(oddrns, r.Oddrn)
	}
	members, err := s.FetchGroupMembers(ctx, oddrns)
	if err != nil {
		return nil, err
	}
	out := make([]DomainInfo, 0, len(records))
	for i := range records {
		out = append(out, DomainInfo{
			Domain:        toRef(&records[i]),
			ChildrenCount: int64(len(members[records[i].Oddrn])),
		})
	}
	return out, nil
}
