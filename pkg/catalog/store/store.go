package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// Store provides persistence for data entities and their relations.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying GORM handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AutoMigrate creates or updates the catalog tables.
func (s *Store) AutoMigrate() error {
	models := []struct {
		name  string
		model any
	}{
		{"data_entity", &DataEntityRecord{}},
		{"group_entity_relations", &GroupEntityRelationRecord{}},
		{"lineage", &LineageRecord{}},
		{"data_entity_task_run", &TaskRunRecord{}},
		{"data_quality_test_relations", &QualityTestRelationRecord{}},
		{"data_quality_test_severity", &QualityTestSeverityRecord{}},
		{"data_entity_filled", &DataEntityFilledRecord{}},
	}
	for _, m := range models {
		if err := s.db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("auto-migrate %s: %w", m.name, err)
		}
	}
	return nil
}

// Transaction runs fn with a Store bound to one database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// CreateAsset inserts a new data entity and sets its ID.
func (s *Store) CreateAsset(ctx context.Context, a *entity.Asset) error {
	rec, err := fromAsset(a)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create data entity %s: %w", a.Oddrn, err)
	}
	a.ID = rec.ID
	a.CreatedAt = rec.CreatedAt
	return nil
}

// IngestAssets upserts data entities by oddrn and stamps their ingestion
// time. Status, view count and internal name are left untouched on update,
// except that a soft-deleted entity comes back live as UNASSIGNED.
func (s *Store) IngestAssets(ctx context.Context, assets []entity.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]*DataEntityRecord, 0, len(assets))
	for i := range assets {
		rec, err := fromAsset(&assets[i])
		if err != nil {
			return err
		}
		rec.ID = 0
		rec.Hollow = false
		rec.LastIngestedAt = &now
		records = append(records, rec)
	}
	// A soft-deleted entity is revived with a fresh status. The status
	// columns are assigned before deleted_at so MySQL, which applies
	// assignments in order, still sees the old deleted_at.
	updates := clause.Set{
		{Column: clause.Column{Name: "status"}, Value: gorm.Expr(
			"CASE WHEN data_entity.deleted_at IS NULL THEN data_entity.status ELSE ? END", string(entity.StatusUnassigned))},
		{Column: clause.Column{Name: "status_switch_time"}, Value: gorm.Expr(
			"CASE WHEN data_entity.deleted_at IS NULL THEN data_entity.status_switch_time ELSE NULL END")},
		{Column: clause.Column{Name: "status_updated_at"}, Value: gorm.Expr(
			"CASE WHEN data_entity.deleted_at IS NULL THEN data_entity.status_updated_at ELSE NULL END")},
		{Column: clause.Column{Name: "deleted_at"}, Value: gorm.Expr("NULL")},
	}
	updates = append(updates, clause.AssignmentColumns([]string{
		"external_name", "entity_classes", "type_id",
		"specific_attributes", "hollow", "last_ingested_at", "updated_at",
	})...)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "oddrn"}},
		DoUpdates: updates,
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("ingest data entities: %w", err)
	}
	return nil
}

// CreateHollow inserts placeholder entities for oddrns that are referenced
// but not yet ingested. Existing oddrns are left alone.
func (s *Store) CreateHollow(ctx context.Context, oddrns []string) error {
	if len(oddrns) == 0 {
		return nil
	}
	records := make([]DataEntityRecord, 0, len(oddrns))
	for _, o := range oddrns {
		records = append(records, DataEntityRecord{
			Oddrn:  o,
			Status: string(entity.StatusUnassigned),
			Hollow: true,
		})
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("create hollow data entities: %w", err)
	}
	return nil
}

// GetAsset retrieves a data entity by id, hollow placeholders included.
// Callers treat hollow entities as not found.
// Returns nil, nil if no record exists.
func (s *Store) GetAsset(ctx context.Context, id int64) (*entity.Asset, error) {
	var rec DataEntityRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get data entity: %w", err)
	}
	a, err := toAsset(&rec)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAssetByOddrn retrieves a live data entity by oddrn.
// Returns nil, nil if no record exists.
func (s *Store) GetAssetByOddrn(ctx context.Context, oddrn string) (*entity.Asset, error) {
	var rec DataEntityRecord
	err := s.db.WithContext(ctx).Where("oddrn = ?", oddrn).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get data entity by oddrn: %w", err)
	}
	a, err := toAsset(&rec)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FetchAssets returns the live, non-hollow data entities with the given
// oddrns. Unknown oddrns are skipped.
func (s *Store) FetchAssets(ctx context.Context, oddrns []string) ([]entity.Asset, error) {
	if len(oddrns) == 0 {
		return []entity.Asset{}, nil
	}
	var records []DataEntityRecord
	err := s.db.WithContext(ctx).
		Where("oddrn IN ? AND hollow = ?", oddrns, false).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("fetch data entities: %w", err)
	}
	return toAssets(records)
}

// ListAssets returns a page of live, non-hollow data entities ordered by id.
// pageToken is the id of the last entity of the previous page; pass 0 for
// the first page. The returned token is 0 when there are no more pages.
func (s *Store) ListAssets(ctx context.Context, pageSize int, pageToken int64) ([]entity.Asset, int64, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := s.db.WithContext(ctx).Where("hollow = ?", false).Order("id ASC").Limit(pageSize + 1)
	if pageToken > 0 {
		query = query.Where("id > ?", pageToken)
	}

	var records []DataEntityRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("list data entities: %w", err)
	}

	var nextToken int64
	if len(records) > pageSize {
		nextToken = records[pageSize-1].ID
		records = records[:pageSize]
	}

	assets, err := toAssets(records)
	if err != nil {
		return nil, 0, err
	}
	return assets, nextToken, nil
}

// SetInternalName sets the user-facing name of a data entity.
func (s *Store) SetInternalName(ctx context.Context, id int64, name string) error {
	res := s.db.WithContext(ctx).Model(&DataEntityRecord{}).
		Where("id = ? AND hollow = ?", id, false).
		Update("internal_name", name)
	if res.Error != nil {
		return fmt.Errorf("set internal name: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return entity.EntityNotFound(id)
	}
	return nil
}

// IncrementViewCount atomically increments the view counter and returns the
// new value.
func (s *Store) IncrementViewCount(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DataEntityRecord{}).
			Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return entity.EntityNotFound(id)
		}
		return tx.Model(&DataEntityRecord{}).Select("view_count").Where("id = ?", id).Scan(&count).Error
	})
	if err != nil {
		if entity.IsNotFound(err) {
			return 0, err
		}
		return 0, fmt.Errorf("increment view count: %w", err)
	}
	return count, nil
}
