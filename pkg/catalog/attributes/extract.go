package attributes

import (
	"encoding/json"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// Draft is the extraction result for one data entity.
type Draft struct {
	Oddrn      string
	Attributes map[entity.Role]RoleAttributes
	// Refs is the union of every role's dependent oddrns.
	Refs []string
}

// Dataset returns the dataset attributes, or nil if the role is not held.
func (d *Draft) Dataset() *DatasetAttributes {
	a, _ := d.Attributes[entity.RoleDataset].(*DatasetAttributes)
	return a
}

// Transformer returns the transformer attributes, or nil if the role is not held.
func (d *Draft) Transformer() *TransformerAttributes {
	a, _ := d.Attributes[entity.RoleTransformer].(*TransformerAttributes)
	return a
}

// QualityTest returns the quality test attributes, or nil if the role is not held.
func (d *Draft) QualityTest() *QualityTestAttributes {
	a, _ := d.Attributes[entity.RoleQualityTest].(*QualityTestAttributes)
	return a
}

// Consumer returns the consumer attributes, or nil if the role is not held.
func (d *Draft) Consumer() *ConsumerAttributes {
	a, _ := d.Attributes[entity.RoleConsumer].(*ConsumerAttributes)
	return a
}

// Input returns the input attributes, or nil if the role is not held.
func (d *Draft) Input() *InputAttributes {
	a, _ := d.Attributes[entity.RoleInput].(*InputAttributes)
	return a
}

// Group returns the group attributes, or nil if the role is not held.
func (d *Draft) Group() *GroupAttributes {
	a, _ := d.Attributes[entity.RoleGroup].(*GroupAttributes)
	return a
}

// Extract decodes the attributes of every role the asset holds. Attributes
// stored for roles the asset does not hold are ignored. A held role without
// stored attributes gets zero-valued attributes.
func Extract(a *entity.Asset) (*Draft, error) {
	d := &Draft{
		Oddrn:      a.Oddrn,
		Attributes: make(map[entity.Role]RoleAttributes, len(a.Roles)),
	}
	lists := make([][]string, 0, len(a.Roles))
	for _, role := range a.Roles {
		attrs := newAttributes(role)
		if attrs == nil {
			continue
		}
		if raw, ok := a.Attributes[role]; ok && len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, attrs); err != nil {
				return nil, entity.NewValidationError(
					fmt.Sprintf("malformed %s attributes for data entity %s: %v", role, a.Oddrn, err))
			}
		}
		d.Attributes[role] = attrs
		lists = append(lists, attrs.DependentOddrns())
	}
	d.Refs = UniqueOddrns(lists...)
	return d, nil
}

// ExtractAll runs Extract over a batch and returns the drafts in input order
// together with the union of all referenced oddrns.
func ExtractAll(assets []entity.Asset) ([]*Draft, []string, error) {
	drafts := make([]*Draft, 0, len(assets))
	lists := make([][]string, 0, len(assets))
	for i := range assets {
		d, err := Extract(&assets[i])
		if err != nil {
			return nil, nil, err
		}
		drafts = append(drafts, d)
		lists = append(lists, d.Refs)
	}
	return drafts, UniqueOddrns(lists...), nil
}

// UniqueOddrns concatenates the lists, dropping empty and repeated values
// while keeping first-occurrence order.
func UniqueOddrns(lists ...[]string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []string
	for _, l := range lists {
		for _, oddrn := range l {
			if oddrn == "" || !seen.Add(oddrn) {
				continue
			}
			out = append(out, oddrn)
		}
	}
	return out
}
