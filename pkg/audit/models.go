// Package audit keeps the activity log of user-driven data entity changes:
// internal name updates, status changes and custom group membership.
package audit

import (
	"time"

	"gorm.io/datatypes"
)

// EventType names the kind of activity recorded.
type EventType string

const (
	EventBusinessNameUpdated EventType = "BUSINESS_NAME_UPDATED"
	EventStatusUpdated       EventType = "DATA_ENTITY_STATUS_UPDATED"
	EventCustomGroupUpdated  EventType = "CUSTOM_GROUP_UPDATED"
)

// Event is the GORM model of one activity log entry. Events are immutable.
type Event struct {
	ID        string         `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	EntityID  int64          `gorm:"column:data_entity_id;index:idx_activity_entity_time,priority:1;not null" json:"dataEntityId"`
	EventType EventType      `gorm:"column:event_type;index:idx_activity_type_time,priority:1;not null" json:"eventType"`
	Actor     string         `gorm:"column:actor;not null" json:"actor"`
	OldValue  datatypes.JSON `gorm:"column:old_value" json:"oldValue,omitempty"`
	NewValue  datatypes.JSON `gorm:"column:new_value" json:"newValue,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;index:idx_activity_entity_time,priority:2;index:idx_activity_type_time,priority:2;autoCreateTime" json:"createdAt"`
}

// TableName returns the GORM table name.
func (Event) TableName() string { return "activity_events" }
