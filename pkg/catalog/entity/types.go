// Package entity holds the data entity model shared by the catalog
// classification, enrichment, group and status packages.
package entity

// Role is a data entity class. An entity may hold several roles at once.
type Role string

const (
	RoleDataset        Role = "DATA_SET"
	RoleTransformer    Role = "DATA_TRANSFORMER"
	RoleTransformerRun Role = "DATA_TRANSFORMER_RUN"
	RoleQualityTest    Role = "DATA_QUALITY_TEST"
	RoleQualityTestRun Role = "DATA_QUALITY_TEST_RUN"
	RoleConsumer       Role = "DATA_CONSUMER"
	RoleInput          Role = "DATA_INPUT"
	RoleGroup          Role = "DATA_ENTITY_GROUP"
)

// TypeID identifies a fine-grained data entity type.
type TypeID int

// Status is the lifecycle status of a data entity.
type Status string

const (
	StatusUnassigned Status = "UNASSIGNED"
	StatusDraft      Status = "DRAFT"
	StatusStable     Status = "STABLE"
	StatusDeprecated Status = "DEPRECATED"
	StatusDeleted    Status = "DELETED"
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{
	StatusUnassigned,
	StatusDraft,
	StatusStable,
	StatusDeprecated,
	StatusDeleted,
}

// ValidStatus returns true if s is a known status.
func ValidStatus(s Status) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Switchable reports whether the status requires a switch time. Entities in a
// switchable status move to the next status once the switch time passes.
func (s Status) Switchable() bool {
	return s == StatusDeprecated || s == StatusDeleted
}

// Severity of a data quality test.
type Severity string

const (
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// TaskRunStatus is the outcome of a transformer or quality test run.
type TaskRunStatus string

const (
	RunSuccess TaskRunStatus = "SUCCESS"
	RunFailed  TaskRunStatus = "FAILED"
	RunSkipped TaskRunStatus = "SKIPPED"
	RunBroken  TaskRunStatus = "BROKEN"
	RunAborted TaskRunStatus = "ABORTED"
	RunUnknown TaskRunStatus = "UNKNOWN"
)
