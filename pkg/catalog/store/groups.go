package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// relatedRow is a data entity row tagged with the oddrn it was looked up by.
type relatedRow struct {
	KeyOddrn         string `gorm:"column:key_oddrn"`
	DataEntityRecord `gorm:"embedded"`
}

func groupRefs(rows []relatedRow) map[string][]entity.AssetRef {
	out := make(map[string][]entity.AssetRef)
	for i := range rows {
		out[rows[i].KeyOddrn] = append(out[rows[i].KeyOddrn], toRef(&rows[i].DataEntityRecord))
	}
	return out
}

// FetchGroupMembers returns the live direct members of each group, manual
// and derived edges alike. Groups without members are absent from the map.
func (s *Store) FetchGroupMembers(ctx context.Context, groupOddrns []string) (map[string][]entity.AssetRef, error) {
	if len(groupOddrns) == 0 {
		return map[string][]entity.AssetRef{}, nil
	}
	var rows []relatedRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT g.group_oddrn AS key_oddrn, de.*
		FROM group_entity_relations g
		JOIN data_entity de ON de.oddrn = g.data_entity_oddrn
		WHERE g.group_oddrn IN ? AND de.deleted_at IS NULL AND de.hollow = ?
		ORDER BY g.group_oddrn, de.id`, groupOddrns, false).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch group members: %w", err)
	}
	return groupRefs(rows), nil
}

// FetchParentGroups returns the live parent groups of each data entity.
func (s *Store) FetchParentGroups(ctx context.Context, oddrns []string) (map[string][]entity.AssetRef, error) {
	if len(oddrns) == 0 {
		return map[string][]entity.AssetRef{}, nil
	}
	var rows []relatedRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT g.data_entity_oddrn AS key_oddrn, de.*
		FROM group_entity_relations g
		JOIN data_entity de ON de.oddrn = g.group_oddrn
		WHERE g.data_entity_oddrn IN ? AND de.deleted_at IS NULL AND de.hollow = ?
		ORDER BY g.data_entity_oddrn, de.id`, oddrns, false).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch parent groups: %w", err)
	}
	return groupRefs(rows), nil
}

// CountGroupDescendants counts, for each group, the distinct live entities
// reachable through group edges that are neither the group itself nor one
// of its direct members. Groups with no such entities are absent.
func (s *Store) CountGroupDescendants(ctx context.Context, groupOddrns []string) (map[string]int64, error) {
	if len(groupOddrns) == 0 {
		return map[string]int64{}, nil
	}
	var rows []struct {
		GroupOddrn string `gorm:"column:group_oddrn"`
		Cnt        int64  `gorm:"column:cnt"`
	}
	err := s.db.WithContext(ctx).Raw(`
		WITH RECURSIVE reach(root, oddrn) AS (
			SELECT group_oddrn, data_entity_oddrn FROM group_entity_relations WHERE group_oddrn IN ?
			UNION
			SELECT r.root, g.data_entity_oddrn
			FROM reach r JOIN group_entity_relations g ON g.group_oddrn = r.oddrn
		)
		SELECT r.root AS group_oddrn, COUNT(DISTINCT r.oddrn) AS cnt
		FROM reach r
		JOIN data_entity de ON de.oddrn = r.oddrn AND de.deleted_at IS NULL AND de.hollow = ?
		WHERE r.oddrn <> r.root
		  AND r.oddrn NOT IN (SELECT d.data_entity_oddrn FROM group_entity_relations d WHERE d.group_oddrn = r.root)
		GROUP BY r.root`, groupOddrns, false).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count group descendants: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupOddrn] = r.Cnt
	}
	return out, nil
}

// IsAncestor reports whether candidate is reachable upwards from oddrn
// through group edges.
func (s *Store) IsAncestor(ctx context.Context, candidate, oddrn string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Raw(`
		WITH RECURSIVE ancestors(oddrn) AS (
			SELECT group_oddrn FROM group_entity_relations WHERE data_entity_oddrn = ?
			UNION
			SELECT g.group_oddrn
			FROM group_entity_relations g JOIN ancestors a ON g.data_entity_oddrn = a.oddrn
		)
		SELECT COUNT(*) FROM ancestors WHERE oddrn = ?`, oddrn, candidate).Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("check group ancestry: %w", err)
	}
	return n > 0, nil
}

// MemberOddrns returns the oddrns of all direct members of a group.
func (s *Store) MemberOddrns(ctx context.Context, groupOddrn string) ([]string, error) {
	var oddrns []string
	err := s.db.WithContext(ctx).Model(&GroupEntityRelationRecord{}).
		Where("group_oddrn = ?", groupOddrn).
		Order("data_entity_oddrn ASC").
		Pluck("data_entity_oddrn", &oddrns).Error
	if err != nil {
		return nil, fmt.Errorf("list group member oddrns: %w", err)
	}
	return oddrns, nil
}

// ListGroupMembers returns one page of live direct members of a group and
// the total number of such members.
func (s *Store) ListGroupMembers(ctx context.Context, groupOddrn string, page, size int) ([]entity.Asset, int64, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	members := s.db.Model(&GroupEntityRelationRecord{}).
		Select("data_entity_oddrn").
		Where("group_oddrn = ?", groupOddrn)

	base := s.db.WithContext(ctx).Model(&DataEntityRecord{}).
		Where("oddrn IN (?) AND hollow = ?", members, false)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count group members: %w", err)
	}

	var records []DataEntityRecord
	err := base.Session(&gorm.Session{}).Order("id ASC").Offset((page - 1) * size).Limit(size).Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list group members: %w", err)
	}
	assets, err := toAssets(records)
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// EdgeExists reports whether the edge group -> member exists.
func (s *Store) EdgeExists(ctx context.Context, groupOddrn, memberOddrn string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&GroupEntityRelationRecord{}).
		Where("group_oddrn = ? AND data_entity_oddrn = ?", groupOddrn, memberOddrn).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check group edge: %w", err)
	}
	return n > 0, nil
}

// CreateEdge inserts a group edge. It returns false without error when the
// edge already exists.
func (s *Store) CreateEdge(ctx context.Context, edge entity.GroupEdge) (bool, error) {
	rec := GroupEntityRelationRecord{
		GroupOddrn:  edge.GroupOddrn,
		EntityOddrn: edge.EntityOddrn,
		Manual:      edge.Manual,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, fmt.Errorf("create group edge: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteEdge removes a group edge and returns the number of removed rows.
func (s *Store) DeleteEdge(ctx context.Context, groupOddrn, memberOddrn string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("group_oddrn = ? AND data_entity_oddrn = ?", groupOddrn, memberOddrn).
		Delete(&GroupEntityRelationRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete group edge: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteDerivedEdges removes the derived edges of a group whose member is
// not in keep and returns the number of removed rows.
func (s *Store) DeleteDerivedEdges(ctx context.Context, groupOddrn string, keep []string) (int64, error) {
	query := s.db.WithContext(ctx).Where("group_oddrn = ? AND is_manual = ?", groupOddrn, false)
	if len(keep) > 0 {
		query = query.Where("data_entity_oddrn NOT IN ?", keep)
	}
	res := query.Delete(&GroupEntityRelationRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete derived group edges: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ParentEdges returns every edge pointing at the member.
func (s *Store) ParentEdges(ctx context.Context, memberOddrn string) ([]entity.GroupEdge, error) {
	var records []GroupEntityRelationRecord
	err := s.db.WithContext(ctx).
		Where("data_entity_oddrn = ?", memberOddrn).
		Order("group_oddrn ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list parent edges: %w", err)
	}
	edges := make([]entity.GroupEdge, 0, len(records))
	for _, r := range records {
		edges = append(edges, entity.GroupEdge{GroupOddrn: r.GroupOddrn, EntityOddrn: r.EntityOddrn, Manual: r.Manual})
	}
	return edges, nil
}

// MarkFilled records that a data entity has a user-curated field.
func (s *Store) MarkFilled(ctx context.Context, id int64, field FilledField) error {
	rec := DataEntityFilledRecord{DataEntityID: id, Field: string(field)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "data_entity_id"}, {Name: "field"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("mark data entity filled: %w", err)
	}
	return nil
}

// MarkUnfilled clears a user-curated field marker.
func (s *Store) MarkUnfilled(ctx context.Context, id int64, field FilledField) error {
	err := s.db.WithContext(ctx).
		Where("data_entity_id = ? AND field = ?", id, string(field)).
		Delete(&DataEntityFilledRecord{}).Error
	if err != nil {
		return fmt.Errorf("mark data entity unfilled: %w", err)
	}
	return nil
}

// IsFilled reports whether the marker is set.
func (s *Store) IsFilled(ctx context.Context, id int64, field FilledField) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&DataEntityFilledRecord{}).
		Where("data_entity_id = ? AND field = ?", id, string(field)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check data entity filled: %w", err)
	}
	return n > 0, nil
}

// CountFilled returns the number of data entities with at least one marker.
func (s *Store) CountFilled(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&DataEntityFilledRecord{}).
		Distinct("data_entity_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count filled data entities: %w", err)
	}
	return n, nil
}
