package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

func toAsset(r *DataEntityRecord) (entity.Asset, error) {
	a := entity.Asset{
		ID:               r.ID,
		Oddrn:            r.Oddrn,
		ExternalName:     r.ExternalName,
		InternalName:     r.InternalName,
		TypeID:           entity.TypeID(r.TypeID),
		Status:           entity.Status(r.Status),
		StatusSwitchTime: r.StatusSwitchTime,
		StatusUpdatedAt:  r.StatusUpdatedAt,
		CreatedAt:        r.CreatedAt,
		LastIngestedAt:   r.LastIngestedAt,
		ViewCount:        r.ViewCount,
		ManuallyCreated:  r.ManuallyCreated,
		Hollow:           r.Hollow,
	}
	for _, role := range r.Roles {
		a.Roles = append(a.Roles, entity.Role(role))
	}
	if len(r.SpecificAttributes) > 0 {
		var byRole map[entity.Role]json.RawMessage
		if err := json.Unmarshal(r.SpecificAttributes, &byRole); err != nil {
			return entity.Asset{}, fmt.Errorf("decode specific attributes of %s: %w", r.Oddrn, err)
		}
		a.Attributes = byRole
	}
	return a, nil
}

func toAssets(records []DataEntityRecord) ([]entity.Asset, error) {
	out := make([]entity.Asset, 0, len(records))
	for i := range records {
		a, err := toAsset(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func toRef(r *DataEntityRecord) entity.AssetRef {
	name := r.InternalName
	if name == "" {
		name = r.ExternalName
	}
	ref := entity.AssetRef{
		ID:              r.ID,
		Oddrn:           r.Oddrn,
		Name:            name,
		TypeID:          entity.TypeID(r.TypeID),
		Status:          entity.Status(r.Status),
		ManuallyCreated: r.ManuallyCreated,
	}
	for _, role := range r.Roles {
		ref.Roles = append(ref.Roles, entity.Role(role))
	}
	return ref
}

func fromAsset(a *entity.Asset) (*DataEntityRecord, error) {
	r := &DataEntityRecord{
		ID:               a.ID,
		Oddrn:            a.Oddrn,
		ExternalName:     a.ExternalName,
		InternalName:     a.InternalName,
		TypeID:           int(a.TypeID),
		Status:           string(a.Status),
		StatusSwitchTime: a.StatusSwitchTime,
		StatusUpdatedAt:  a.StatusUpdatedAt,
		ManuallyCreated:  a.ManuallyCreated,
		Hollow:           a.Hollow,
		ViewCount:        a.ViewCount,
		LastIngestedAt:   a.LastIngestedAt,
	}
	if r.Status == "" {
		r.Status = string(entity.StatusUnassigned)
	}
	for _, role := range a.Roles {
		r.Roles = append(r.Roles, string(role))
	}
	if len(a.Attributes) > 0 {
		b, err := json.Marshal(a.Attributes)
		if err != nil {
			return nil, fmt.Errorf("encode specific attributes of %s: %w", a.Oddrn, err)
		}
		r.SpecificAttributes = datatypes.JSON(b)
	}
	return r, nil
}

func toTaskRun(r *TaskRunRecord) *entity.TaskRun {
	return &entity.TaskRun{
		ID:           r.ID,
		TaskOddrn:    r.TaskOddrn,
		Name:         r.Name,
		Status:       entity.TaskRunStatus(r.Status),
		StatusReason: r.StatusReason,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
}
