package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// AddLineage records a lineage edge. Repeated edges are ignored.
func (s *Store) AddLineage(ctx context.Context, parentOddrn, childOddrn, establisherOddrn string) error {
	rec := LineageRecord{ParentOddrn: parentOddrn, ChildOddrn: childOddrn, EstablisherOddrn: establisherOddrn}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("add lineage: %w", err)
	}
	return nil
}

// CountConsumers counts the distinct live downstream entities of each
// dataset. Datasets without consumers are absent from the map.
func (s *Store) CountConsumers(ctx context.Context, datasetOddrns []string) (map[string]int64, error) {
	if len(datasetOddrns) == 0 {
		return map[string]int64{}, nil
	}
	var rows []struct {
		ParentOddrn string `gorm:"column:parent_oddrn"`
		Cnt         int64  `gorm:"column:cnt"`
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT l.parent_oddrn, COUNT(DISTINCT l.child_oddrn) AS cnt
		FROM lineage l
		JOIN data_entity de ON de.oddrn = l.child_oddrn AND de.deleted_at IS NULL AND de.hollow = ?
		WHERE l.parent_oddrn IN ?
		GROUP BY l.parent_oddrn`, false, datasetOddrns).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count dataset consumers: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ParentOddrn] = r.Cnt
	}
	return out, nil
}

// SaveTaskRun stores a task run. An empty ID gets a new UUID.
func (s *Store) SaveTaskRun(ctx context.Context, run *entity.TaskRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartTime.IsZero() {
		run.StartTime = time.Now()
	}
	rec := TaskRunRecord{
		ID:           run.ID,
		TaskOddrn:    run.TaskOddrn,
		Name:         run.Name,
		Status:       string(run.Status),
		StatusReason: run.StatusReason,
		StartTime:    run.StartTime,
		EndTime:      run.EndTime,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "status_reason", "end_time"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save task run: %w", err)
	}
	return nil
}

// FetchLatestRuns returns the run with the latest start time for each task.
// Tasks without runs are absent from the map.
func (s *Store) FetchLatestRuns(ctx context.Context, taskOddrns []string) (map[string]*entity.TaskRun, error) {
	if len(taskOddrns) == 0 {
		return map[string]*entity.TaskRun{}, nil
	}
	latest := s.db.Model(&TaskRunRecord{}).
		Select("task_oddrn, MAX(start_time) AS max_start").
		Where("task_oddrn IN ?", taskOddrns).
		Group("task_oddrn")

	var records []TaskRunRecord
	err := s.db.WithContext(ctx).
		Joins("JOIN (?) latest ON latest.task_oddrn = data_entity_task_run.task_oddrn AND latest.max_start = data_entity_task_run.start_time", latest).
		Order("data_entity_task_run.id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("fetch latest task runs: %w", err)
	}

	out := make(map[string]*entity.TaskRun, len(records))
	for i := range records {
		// ties on start time keep the lowest id
		if _, ok := out[records[i].TaskOddrn]; !ok {
			out[records[i].TaskOddrn] = toTaskRun(&records[i])
		}
	}
	return out, nil
}

// LinkQualityTest records that a quality test checks a dataset.
func (s *Store) LinkQualityTest(ctx context.Context, datasetOddrn, testOddrn string) error {
	rec := QualityTestRelationRecord{DatasetOddrn: datasetOddrn, QualityTestOddrn: testOddrn}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("link quality test: %w", err)
	}
	return nil
}

// QualityTestOddrns returns the oddrns of the quality tests of a dataset.
func (s *Store) QualityTestOddrns(ctx context.Context, datasetOddrn string) ([]string, error) {
	var oddrns []string
	err := s.db.WithContext(ctx).Model(&QualityTestRelationRecord{}).
		Where("dataset_oddrn = ?", datasetOddrn).
		Order("data_quality_test_oddrn ASC").
		Pluck("data_quality_test_oddrn", &oddrns).Error
	if err != nil {
		return nil, fmt.Errorf("list dataset quality tests: %w", err)
	}
	return oddrns, nil
}

// SetSeverity sets the severity of a quality test for a dataset.
func (s *Store) SetSeverity(ctx context.Context, datasetOddrn, testOddrn string, severity entity.Severity) error {
	rec := QualityTestSeverityRecord{DatasetOddrn: datasetOddrn, QualityTestOddrn: testOddrn, Severity: string(severity)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dataset_oddrn"}, {Name: "data_quality_test_oddrn"}},
		DoUpdates: clause.AssignmentColumns([]string{"severity", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("set quality test severity: %w", err)
	}
	return nil
}

// FetchSeverities returns the severity of each quality test for a dataset.
// Tests without a severity are absent from the map.
func (s *Store) FetchSeverities(ctx context.Context, datasetOddrn string, testOddrns []string) (map[string]entity.Severity, error) {
	if len(testOddrns) == 0 {
		return map[string]entity.Severity{}, nil
	}
	var records []QualityTestSeverityRecord
	err := s.db.WithContext(ctx).
		Where("dataset_oddrn = ? AND data_quality_test_oddrn IN ?", datasetOddrn, testOddrns).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("fetch quality test severities: %w", err)
	}
	out := make(map[string]entity.Severity, len(records))
	for _, r := range records {
		out[r.QualityTestOddrn] = entity.Severity(r.Severity)
	}
	return out, nil
}
