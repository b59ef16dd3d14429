package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// DataEntityRecord is a persisted data entity. SpecificAttributes holds the
// raw attributes keyed by role name.
type DataEntityRecord struct {
	ID                 int64           `gorm:"primaryKey;column:id;autoIncrement"`
	Oddrn              string          `gorm:"column:oddrn;type:varchar(512);uniqueIndex;not null"`
	ExternalName       string          `gorm:"column:external_name"`
	InternalName       string          `gorm:"column:internal_name"`
	Roles              JSONStringSlice `gorm:"column:entity_classes;type:text"`
	TypeID             int             `gorm:"column:type_id;index"`
	Status             string          `gorm:"column:status;default:UNASSIGNED;not null"`
	StatusSwitchTime   *time.Time      `gorm:"column:status_switch_time;index"`
	StatusUpdatedAt    *time.Time      `gorm:"column:status_updated_at"`
	SpecificAttributes datatypes.JSON  `gorm:"column:specific_attributes"`
	ManuallyCreated    bool            `gorm:"column:manually_created;default:false;not null"`
	Hollow             bool            `gorm:"column:hollow;default:false;not null"`
	ViewCount          int64           `gorm:"column:view_count;default:0;not null"`
	LastIngestedAt     *time.Time      `gorm:"column:last_ingested_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

// TableName returns the GORM table name.
func (DataEntityRecord) TableName() string { return "data_entity" }

// GroupEntityRelationRecord is a containment edge between a group and a
// member, both referenced by oddrn.
type GroupEntityRelationRecord struct {
	GroupOddrn  string    `gorm:"primaryKey;column:group_oddrn;type:varchar(512)"`
	EntityOddrn string    `gorm:"primaryKey;column:data_entity_oddrn;type:varchar(512);index"`
	Manual      bool      `gorm:"column:is_manual;default:false;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (GroupEntityRelationRecord) TableName() string { return "group_entity_relations" }

// LineageRecord is a lineage edge from a parent to a child data entity.
type LineageRecord struct {
	ParentOddrn      string `gorm:"primaryKey;column:parent_oddrn;type:varchar(512)"`
	ChildOddrn       string `gorm:"primaryKey;column:child_oddrn;type:varchar(512);index"`
	EstablisherOddrn string `gorm:"primaryKey;column:establisher_oddrn;type:varchar(512)"`
}

// TableName returns the GORM table name.
func (LineageRecord) TableName() string { return "lineage" }

// TaskRunRecord is one run of a transformer or quality test.
type TaskRunRecord struct {
	ID           string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	TaskOddrn    string         `gorm:"column:task_oddrn;type:varchar(512);index:idx_task_run_start,priority:1;not null"`
	Name         string         `gorm:"column:name"`
	Status       string         `gorm:"column:status;not null"`
	StatusReason string         `gorm:"column:status_reason"`
	StartTime    time.Time      `gorm:"column:start_time;index:idx_task_run_start,priority:2"`
	EndTime      *time.Time     `gorm:"column:end_time"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
}

// TableName returns the GORM table name.
func (TaskRunRecord) TableName() string { return "data_entity_task_run" }

// QualityTestRelationRecord links a quality test to a dataset it checks.
type QualityTestRelationRecord struct {
	DatasetOddrn     string `gorm:"primaryKey;column:dataset_oddrn;type:varchar(512)"`
	QualityTestOddrn string `gorm:"primaryKey;column:data_quality_test_oddrn;type:varchar(512);index"`
}

// TableName returns the GORM table name.
func (QualityTestRelationRecord) TableName() string { return "data_quality_test_relations" }

// QualityTestSeverityRecord is the severity of a quality test for a dataset.
type QualityTestSeverityRecord struct {
	DatasetOddrn     string    `gorm:"primaryKey;column:dataset_oddrn;type:varchar(512)"`
	QualityTestOddrn string    `gorm:"primaryKey;column:data_quality_test_oddrn;type:varchar(512)"`
	Severity         string    `gorm:"column:severity;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (QualityTestSeverityRecord) TableName() string { return "data_quality_test_severity" }

// FilledField names a user-curated aspect of a data entity.
type FilledField string

const (
	FilledCustomGroup  FilledField = "custom_group"
	FilledInternalName FilledField = "internal_name"
)

// DataEntityFilledRecord marks which user-curated fields a data entity has.
type DataEntityFilledRecord struct {
	DataEntityID int64     `gorm:"primaryKey;column:data_entity_id"`
	Field        string    `gorm:"primaryKey;column:field;type:varchar(64)"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (DataEntityFilledRecord) TableName() string { return "data_entity_filled" }
