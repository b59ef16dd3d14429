// Package status validates and applies data entity status changes,
// including cascading a change to the members of a group and switching
// entities whose switch time has passed.
package status

import (
	"fmt"
	"time"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// SwitchRule defines what happens to an entity in a switchable status once
// its switch time has passed.
type SwitchRule struct {
	From  entity.Status
	Next  entity.Status
	Purge bool
}

// DefaultSwitchRules moves deprecated entities to deleted, and purges
// deleted entities.
var DefaultSwitchRules = []SwitchRule{
	{From: entity.StatusDeprecated, Next: entity.StatusDeleted},
	{From: entity.StatusDeleted, Purge: true},
}

// Lifecycle validates status changes and computes their effect.
type Lifecycle struct {
	rules            []SwitchRule
	deletedRetention time.Duration
}

// NewLifecycle creates a Lifecycle with the default rules. deletedRetention
// is how long an entity stays deleted before it is purged.
func NewLifecycle(deletedRetention time.Duration) *Lifecycle {
	return &Lifecycle{rules: DefaultSwitchRules, deletedRetention: deletedRetention}
}

// Validate checks a requested change. A switchable target status requires
// a switch time.
func (l *Lifecycle) Validate(change entity.StatusChange) error {
	if !entity.ValidStatus(change.Status) {
		return &entity.Error{
			Code:    "STATUS_UNKNOWN",
			Message: fmt.Sprintf("unknown status %q", change.Status),
			Err:     entity.ErrValidation,
		}
	}
	if change.Status.Switchable() && change.SwitchTime == nil {
		return &entity.Error{
			Code:    "STATUS_SWITCH_TIME_REQUIRED",
			Message: fmt.Sprintf("status %s must have status switch time", change.Status),
			Err:     entity.ErrValidation,
		}
	}
	return nil
}

// Apply computes the new status record of an entity. The switch time is
// always replaced; the status update time only moves when the status value
// changes.
func (l *Lifecycle) Apply(a *entity.Asset, change entity.StatusChange, now time.Time) entity.StatusRecord {
	rec := entity.StatusRecord{
		ID:              a.ID,
		Status:          change.Status,
		SwitchTime:      change.SwitchTime,
		StatusUpdatedAt: a.StatusUpdatedAt,
	}
	if a.Status != change.Status {
		t := now
		rec.StatusUpdatedAt = &t
	}
	return rec
}

// Rule returns the switch rule for a status.
func (l *Lifecycle) Rule(from entity.Status) (SwitchRule, bool) {
	for _, r := range l.rules {
		if r.From == from {
			return r, true
		}
	}
	return SwitchRule{}, false
}

// NextChange returns the change to apply to an entity whose switch time has
// passed. purge is true when the entity should be removed instead.
func (l *Lifecycle) NextChange(from entity.Status, now time.Time) (change entity.StatusChange, purge bool, ok bool) {
	rule, found := l.Rule(from)
	if !found {
		return entity.StatusChange{}, false, false
	}
	if rule.Purge {
		return entity.StatusChange{}, true, true
	}
	change = entity.StatusChange{Status: rule.Next}
	if rule.Next.Switchable() {
		t := now.Add(l.deletedRetention)
		change.SwitchTime = &t
	}
	return change, false, true
}
