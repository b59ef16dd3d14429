// Package attributes decodes the raw per-role attribute bag of a data entity
// into typed attributes and lists the data entities each role depends on.
package attributes

import (
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// RoleAttributes is the typed raw form of one role's attributes.
type RoleAttributes interface {
	Role() entity.Role
	// DependentOddrns lists referenced data entities, duplicates removed,
	// in first-occurrence order.
	DependentOddrns() []string
}

// DatasetAttributes are the declared dataset statistics.
type DatasetAttributes struct {
	RowsCount   *int64 `json:"rows_count,omitempty"`
	FieldsCount int    `json:"fields_count"`
}

// TransformerAttributes declare transformer inputs and outputs.
type TransformerAttributes struct {
	SourceCodeURL string   `json:"source_code_url,omitempty"`
	SourceOddrns  []string `json:"source_list"`
	TargetOddrns  []string `json:"target_list"`
}

// QualityTestAttributes declare what a quality test checks.
type QualityTestAttributes struct {
	SuiteName     string             `json:"suite_name,omitempty"`
	SuiteURL      string             `json:"suite_url,omitempty"`
	LinkedURLs    []entity.LinkedURL `json:"linked_url_list,omitempty"`
	DatasetOddrns []string           `json:"dataset_list"`
	Expectation   entity.Expectation `json:"expectation"`
}

// ConsumerAttributes declare consumer inputs.
type ConsumerAttributes struct {
	InputOddrns []string `json:"input_list"`
}

// InputAttributes declare input outputs.
type InputAttributes struct {
	OutputOddrns []string `json:"output_list"`
}

// GroupAttributes declare the members of an ingested group. They are stored
// as group edges, not resolved as references: enrichment reads membership
// from the edges.
type GroupAttributes struct {
	EntityOddrns []string `json:"entities_list"`
}

// Members returns the declared members without blanks, repeats or the group
// itself.
func (a *GroupAttributes) Members(groupOddrn string) []string {
	out := make([]string, 0, len(a.EntityOddrns))
	for _, o := range UniqueOddrns(a.EntityOddrns) {
		if o != groupOddrn {
			out = append(out, o)
		}
	}
	return out
}

func (*DatasetAttributes) Role() entity.Role     { return entity.RoleDataset }
func (*TransformerAttributes) Role() entity.Role { return entity.RoleTransformer }
func (*QualityTestAttributes) Role() entity.Role { return entity.RoleQualityTest }
func (*ConsumerAttributes) Role() entity.Role    { return entity.RoleConsumer }
func (*InputAttributes) Role() entity.Role       { return entity.RoleInput }
func (*GroupAttributes) Role() entity.Role       { return entity.RoleGroup }

func (*DatasetAttributes) DependentOddrns() []string { return nil }
func (*GroupAttributes) DependentOddrns() []string   { return nil }

func (a *TransformerAttributes) DependentOddrns() []string {
	return UniqueOddrns(a.SourceOddrns, a.TargetOddrns)
}

func (a *QualityTestAttributes) DependentOddrns() []string {
	return UniqueOddrns(a.DatasetOddrns)
}

func (a *ConsumerAttributes) DependentOddrns() []string {
	return UniqueOddrns(a.InputOddrns)
}

func (a *InputAttributes) DependentOddrns() []string {
	return UniqueOddrns(a.OutputOddrns)
}

// newAttributes returns an empty attribute value for roles that carry
// attributes, or nil for roles that do not.
func newAttributes(role entity.Role) RoleAttributes {
	switch role {
	case entity.RoleDataset:
		return &DatasetAttributes{}
	case entity.RoleTransformer:
		return &TransformerAttributes{}
	case entity.RoleQualityTest:
		return &QualityTestAttributes{}
	case entity.RoleConsumer:
		return &ConsumerAttributes{}
	case entity.RoleInput:
		return &InputAttributes{}
	case entity.RoleGroup:
		return &GroupAttributes{}
	default:
		return nil
	}
}
