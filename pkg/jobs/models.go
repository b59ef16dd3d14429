package jobs

import (
	"time"
)

// RunState represents the lifecycle state of a status switch pass.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// SwitchRun is the GORM model recording one status switch pass.
type SwitchRun struct {
	ID         string     `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Holder     string     `gorm:"column:holder;not null" json:"holder"`
	State      RunState   `gorm:"column:state;index:idx_switch_run_state;not null;default:running" json:"state"`
	StartedAt  time.Time  `gorm:"column:started_at;index;not null" json:"startedAt"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	Switched   int        `gorm:"column:switched" json:"switched"`
	Purged     int64      `gorm:"column:purged" json:"purged"`
	LastError  string     `gorm:"column:last_error" json:"lastError,omitempty"`
	DurationMs int64      `gorm:"column:duration_ms" json:"durationMs"`
}

// TableName returns the GORM table name.
func (SwitchRun) TableName() string { return "status_switch_runs" }

// IsTerminal returns true if the pass has finished.
func (r *SwitchRun) IsTerminal() bool {
	switch r.State {
	case RunStateSucceeded, RunStateFailed:
		return true
	}
	return false
}
