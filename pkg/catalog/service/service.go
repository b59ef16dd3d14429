// Package service composes the catalog building blocks into the use cases
// exposed by the CLI: details and dimensions views, group membership,
// status changes, ingestion and usage statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kubeflow/data-catalog/pkg/audit"
	"github.com/kubeflow/data-catalog/pkg/catalog/classification"
	"github.com/kubeflow/data-catalog/pkg/catalog/enrichment"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
	"github.com/kubeflow/data-catalog/pkg/catalog/groups"
	"github.com/kubeflow/data-catalog/pkg/catalog/status"
	"github.com/kubeflow/data-catalog/pkg/catalog/store"
)

// Config bounds the size of the batches a single call may enrich.
type Config struct {
	MaxBatchSize    int
	DefaultPageSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{MaxBatchSize: 500, DefaultPageSize: 20}
}

// Service is the catalog facade.
type Service struct {
	store    *store.Store
	enricher *enrichment.Enricher
	groups   *groups.Manager
	status   *status.Controller
	activity ActivityLog
	cfg      Config
	logger   *slog.Logger
}

// New wires a Service over a store.
func New(s *store.Store, cfg Config, lifecycle *status.Lifecycle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	if cfg.DefaultPageSize > cfg.MaxBatchSize {
		cfg.DefaultPageSize = cfg.MaxBatchSize
	}

	mgr := groups.NewManager(s, logger)
	resolver := enrichment.NewResolver(s, s, mgr, s, logger)
	return &Service{
		store:    s,
		enricher: enrichment.NewEnricher(resolver, mgr, logger),
		groups:   mgr,
		status:   status.NewController(s, mgr, lifecycle, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// Groups returns the group manager used by the service.
func (s *Service) Groups() *groups.Manager {
	return s.groups
}

// GetDetails returns a fully enriched data entity with its parent groups and
// counts the view.
func (s *Service) GetDetails(ctx context.Context, id int64) (*entity.Asset, error) {
	a, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Hollow {
		return nil, entity.EntityNotFound(id)
	}

	enriched, err := s.enrich(ctx, []entity.Asset{*a})
	if err != nil {
		return nil, err
	}
	out := enriched[0]

	views, err := s.store.IncrementViewCount(ctx, id)
	if err != nil {
		return nil, err
	}
	out.ViewCount = views
	return &out, nil
}

// GetDetailsByOddrn is GetDetails for an oddrn.
func (s *Service) GetDetailsByOddrn(ctx context.Context, oddrn string) (*entity.Asset, error) {
	a, err := s.store.GetAssetByOddrn(ctx, oddrn)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Hollow {
		return nil, entity.NewNotFoundError(fmt.Sprintf("data entity %s not found", oddrn))
	}
	return s.GetDetails(ctx, a.ID)
}

// List returns one enriched page of live data entities ordered by id, and
// the token of the next page (0 on the last page).
func (s *Service) List(ctx context.Context, pageSize int, pageToken int64) ([]entity.Asset, int64, error) {
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	assets, next, err := s.store.ListAssets(ctx, pageSize, pageToken)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.enrich(ctx, assets)
	if err != nil {
		return nil, 0, err
	}
	return items, next, nil
}

// GetDimensions returns enriched data entities with their parent groups.
// Unknown oddrns are skipped.
func (s *Service) GetDimensions(ctx context.Context, oddrns []string) ([]entity.Asset, error) {
	if len(oddrns) > s.cfg.MaxBatchSize {
		return nil, entity.NewValidationError(
			fmt.Sprintf("too many data entities requested: %d > %d", len(oddrns), s.cfg.MaxBatchSize))
	}
	assets, err := s.store.FetchAssets(ctx, oddrns)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, assets)
}

// QualityTestsWithSeverity returns the enriched quality tests linked to a
// dataset. Each test carries the severity set for the dataset, or none.
func (s *Service) QualityTestsWithSeverity(ctx context.Context, datasetID int64) ([]entity.Asset, error) {
	ds, err := s.store.GetAsset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if ds == nil || ds.Hollow {
		return nil, entity.EntityNotFound(datasetID)
	}

	oddrns, err := s.store.QualityTestOddrns(ctx, ds.Oddrn)
	if err != nil {
		return nil, err
	}
	tests, err := s.store.FetchAssets(ctx, oddrns)
	if err != nil {
		return nil, err
	}
	tests, err = s.enricher.Enrich(ctx, tests)
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		return tests, nil
	}

	severities, err := s.store.FetchSeverities(ctx, ds.Oddrn, oddrns)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		p, ok := tests[i].Payloads[entity.RoleQualityTest].(*entity.QualityTestPayload)
		if !ok {
			continue
		}
		if sev, ok := severities[tests[i].Oddrn]; ok {
			p.Severity = &sev
		}
	}
	return tests, nil
}

// Page is one page of data entities.
type Page struct {
	Items []entity.Asset `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// GroupMembers returns one enriched page of the direct members of a group.
// Pages start at 1.
func (s *Service) GroupMembers(ctx context.Context, groupID int64, page, size int) (*Page, error) {
	g, err := s.store.GetAsset(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Hollow {
		return nil, entity.EntityNotFound(groupID)
	}
	if !g.HasRole(entity.RoleGroup) {
		return nil, entity.NewValidationError(fmt.Sprintf("data entity %d is not a group", groupID))
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxBatchSize {
		size = s.cfg.MaxBatchSize
	}

	members, total, err := s.store.ListGroupMembers(ctx, g.Oddrn, page, size)
	if err != nil {
		return nil, err
	}
	items, err := s.enricher.Enrich(ctx, members)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// AddToGroup adds a data entity to a manually created group.
func (s *Service) AddToGroup(ctx context.Context, groupID, memberID int64) (*entity.AssetRef, error) {
	ref, err := s.groups.AddMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, memberID, audit.EventCustomGroupUpdated, nil, groupValue{Action: "added", GroupID: groupID})
	return ref, nil
}

// RemoveFromGroup removes a data entity from a group and returns the groups
// it still belongs to.
func (s *Service) RemoveFromGroup(ctx context.Context, groupID, memberID int64) ([]entity.GroupEdge, error) {
	remaining, err := s.groups.RemoveMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, memberID, audit.EventCustomGroupUpdated, groupValue{Action: "removed", GroupID: groupID}, nil)
	return remaining, nil
}

// UpdateStatus applies a status change.
func (s *Service) UpdateStatus(ctx context.Context, id int64, change entity.StatusChange) ([]entity.StatusRecord, error) {
	before := s.snapshot(ctx, id)
	records, err := s.status.ApplyStatus(ctx, id, change)
	if err != nil {
		return nil, err
	}
	s.recordStatus(ctx, id, before, records)
	return records, nil
}

// Dictionary returns the class and type dictionary.
func (s *Service) Dictionary() (*classification.Dictionary, error) {
	return classification.GetDictionary()
}

func (s *Service) enrich(ctx context.Context, assets []entity.Asset) ([]entity.Asset, error) {
	enriched, err := s.enricher.Enrich(ctx, assets)
	if err != nil {
		return nil, err
	}
	return s.enricher.AttachParentGroups(ctx, enriched)
}

// roleOf maps unknown types to validation errors.
func roleOf(id entity.TypeID) (entity.Role, error) {
	role, err := classification.RoleOf(id)
	if errors.Is(err, classification.ErrUnknownType) {
		return "", entity.NewValidationError(err.Error())
	}
	return role, err
}
