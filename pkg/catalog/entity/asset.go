package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Asset is a catalog data entity together with its enriched role payloads.
type Asset struct {
	ID               int64                    `json:"id"`
	Oddrn            string                   `json:"oddrn"`
	ExternalName     string                   `json:"externalName,omitempty"`
	InternalName     string                   `json:"internalName,omitempty"`
	Roles            []Role                   `json:"roles"`
	TypeID           TypeID                   `json:"typeId"`
	Status           Status                   `json:"status"`
	StatusSwitchTime *time.Time               `json:"statusSwitchTime,omitempty"`
	StatusUpdatedAt  *time.Time               `json:"statusUpdatedAt,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	LastIngestedAt   *time.Time               `json:"lastIngestedAt,omitempty"`
	ViewCount        int64                    `json:"viewCount"`
	ManuallyCreated  bool                     `json:"manuallyCreated"`
	Hollow           bool                     `json:"hollow,omitempty"`
	Attributes       map[Role]json.RawMessage `json:"-"`
	Payloads         map[Role]Payload         `json:"payloads,omitempty"`
	ParentGroups     []AssetRef               `json:"parentGroups,omitempty"`
}

// HasRole reports whether the asset holds the given role.
func (a *Asset) HasRole(r Role) bool {
	for _, held := range a.Roles {
		if held == r {
			return true
		}
	}
	return false
}

// Name returns the internal name if set, the external name otherwise.
func (a *Asset) Name() string {
	if a.InternalName != "" {
		return a.InternalName
	}
	return a.ExternalName
}

// Ref returns the lightweight reference to this asset.
func (a *Asset) Ref() AssetRef {
	return AssetRef{
		ID:              a.ID,
		Oddrn:           a.Oddrn,
		Name:            a.Name(),
		Roles:           a.Roles,
		TypeID:          a.TypeID,
		Status:          a.Status,
		ManuallyCreated: a.ManuallyCreated,
	}
}

// Validate checks the structural invariants of an asset. roleOf resolves the
// role a type belongs to.
func (a *Asset) Validate(roleOf func(TypeID) (Role, error)) error {
	if a.Oddrn == "" {
		return NewValidationError("data entity oddrn is required")
	}
	if len(a.Roles) == 0 {
		return NewValidationError(fmt.Sprintf("data entity %s has no roles", a.Oddrn))
	}
	if roleOf == nil {
		return nil
	}
	role, err := roleOf(a.TypeID)
	if err != nil {
		return err
	}
	if !a.HasRole(role) {
		return NewValidationError(fmt.Sprintf("type %d of data entity %s does not belong to any of its roles", a.TypeID, a.Oddrn))
	}
	return nil
}

// AssetRef is a resolved reference to another data entity.
type AssetRef struct {
	ID              int64  `json:"id"`
	Oddrn           string `json:"oddrn"`
	Name            string `json:"name"`
	Roles           []Role `json:"roles,omitempty"`
	TypeID          TypeID `json:"typeId"`
	Status          Status `json:"status,omitempty"`
	ManuallyCreated bool   `json:"manuallyCreated"`
}

// TaskRun is a single execution of a transformer or a quality test.
type TaskRun struct {
	ID           string        `json:"id"`
	TaskOddrn    string        `json:"taskOddrn"`
	Name         string        `json:"name,omitempty"`
	Status       TaskRunStatus `json:"status"`
	StatusReason string        `json:"statusReason,omitempty"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
}

// StatusChange is a requested status transition.
type StatusChange struct {
	Status     Status     `json:"status"`
	SwitchTime *time.Time `json:"statusSwitchTime,omitempty"`
	Propagate  bool       `json:"propagate"`
}

// StatusRecord is the persisted status state of one data entity.
type StatusRecord struct {
	ID              int64
	Status          Status
	SwitchTime      *time.Time
	StatusUpdatedAt *time.Time
}

// GroupEdge is a containment edge between a group and one of its members.
type GroupEdge struct {
	GroupOddrn  string `json:"groupOddrn"`
	EntityOddrn string `json:"entityOddrn"`
	Manual      bool   `json:"manual"`
}
