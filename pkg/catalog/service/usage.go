package service

import (
	"context"

	"github.com/kubeflow/data-catalog/pkg/catalog/classification"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
	"github.com/kubeflow/data-catalog/pkg/catalog/store"
)

// TypeUsage is the number of data entities of one type within a class.
type TypeUsage struct {
	ID    entity.TypeID `json:"id"`
	Name  string        `json:"name"`
	Count int64         `json:"count"`
}

// ClassUsage is the number of data entities holding one role.
type ClassUsage struct {
	ID    int         `json:"id"`
	Role  entity.Role `json:"role"`
	Count int64       `json:"count"`
	Types []TypeUsage `json:"types"`
}

// UsageInfo summarizes the catalog content.
type UsageInfo struct {
	Total   int64        `json:"total"`
	Filled  int64        `json:"filled"`
	Classes []ClassUsage `json:"classes"`
}

// UsageInfo counts live data entities per class and type. Run classes are
// left out.
func (s *Service) UsageInfo(ctx context.Context) (*UsageInfo, error) {
	stats, err := s.store.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	filled, err := s.store.CountFilled(ctx)
	if err != nil {
		return nil, err
	}

	info := &UsageInfo{Total: stats.Total, Filled: filled}
	for _, role := range classification.AllRoles() {
		if role == entity.RoleTransformerRun || role == entity.RoleQualityTestRun {
			continue
		}
		byType := stats.ByRoleAndType[role]
		cu := ClassUsage{ID: classification.ClassID(role), Role: role, Types: []TypeUsage{}}
		for _, n := range byType {
			cu.Count += n
		}
		for _, t := range classification.TypesOf(role) {
			cu.Types = append(cu.Types, TypeUsage{ID: t.ID, Name: t.Name, Count: byType[t.ID]})
		}
		info.Classes = append(info.Classes, cu)
	}
	return info, nil
}

// Domains lists the domain groups with their direct member counts.
func (s *Service) Domains(ctx context.Context) ([]store.DomainInfo, error) {
	return s.store.Domains(ctx, classification.DomainTypeID)
}
