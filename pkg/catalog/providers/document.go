// Package providers reads ingest documents describing data entities, task
// runs and quality test severities from external sources.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kubeflow/data-catalog/pkg/catalog/classification"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// Document is one ingest document.
//
//	entities:
//	  - oddrn: //db/orders
//	    name: orders
//	    type: TABLE
//	    roles: [DATA_SET]
//	    attributes:
//	      DATA_SET: {rows_count: 42, fields_count: 3}
//	  - oddrn: //dag/etl
//	    type: DAG
//	    roles: [DATA_ENTITY_GROUP]
//	    attributes:
//	      DATA_ENTITY_GROUP: {entities_list: [//job/etl]}
//	runs:
//	  - id: run-1
//	    taskOddrn: //job/etl
//	    status: SUCCESS
//	    startTime: 2024-01-01T00:00:00Z
//	severities:
//	  - {dataset: //db/orders, test: //dq/not-null, severity: MAJOR}
type Document struct {
	Entities   []EntityDoc   `yaml:"entities"`
	Runs       []RunDoc      `yaml:"runs"`
	Severities []SeverityDoc `yaml:"severities"`
}

// EntityDoc describes a data entity. Type takes precedence over TypeID.
type EntityDoc struct {
	Oddrn      string         `yaml:"oddrn"`
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	TypeID     int            `yaml:"typeId"`
	Roles      []string       `yaml:"roles"`
	Attributes map[string]any `yaml:"attributes"`
}

// RunDoc describes a transformer or quality test run.
type RunDoc struct {
	ID           string     `yaml:"id"`
	TaskOddrn    string     `yaml:"taskOddrn"`
	Name         string     `yaml:"name"`
	Status       string     `yaml:"status"`
	StatusReason string     `yaml:"statusReason"`
	StartTime    time.Time  `yaml:"startTime"`
	EndTime      *time.Time `yaml:"endTime"`
}

// SeverityDoc assigns a severity to a quality test of a dataset.
type SeverityDoc struct {
	Dataset  string `yaml:"dataset"`
	Test     string `yaml:"test"`
	Severity string `yaml:"severity"`
}

// Ingester stores what a document describes.
type Ingester interface {
	Ingest(ctx context.Context, assets []entity.Asset) error
	RecordTaskRun(ctx context.Context, run *entity.TaskRun) error
	SetSeverity(ctx context.Context, datasetOddrn, testOddrn string, severity entity.Severity) error
}

// Summary counts what was applied.
type Summary struct {
	Entities   int `json:"entities"`
	Runs       int `json:"runs"`
	Severities int `json:"severities"`
}

// Add accumulates another summary.
func (s *Summary) Add(o Summary) {
	s.Entities += o.Entities
	s.Runs += o.Runs
	s.Severities += o.Severities
}

// ParseDocument decodes a YAML ingest document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse ingest document: %w", err)
	}
	return &doc, nil
}

// ParseDocuments decodes a YAML ingest document as a one-element slice.
func ParseDocuments(data []byte) ([]Document, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return []Document{*doc}, nil
}

// Assets converts the entity section into assets ready for ingestion.
func (d *Document) Assets() ([]entity.Asset, error) {
	out := make([]entity.Asset, 0, len(d.Entities))
	for _, e := range d.Entities {
		a := entity.Asset{Oddrn: e.Oddrn, ExternalName: e.Name, TypeID: entity.TypeID(e.TypeID)}
		if e.Type != "" {
			t, ok := classification.LookupName(e.Type)
			if !ok {
				return nil, entity.NewValidationError(fmt.Sprintf("data entity %s: unknown type %q", e.Oddrn, e.Type))
			}
			a.TypeID = t.ID
		}
		for _, r := range e.Roles {
			a.Roles = append(a.Roles, entity.Role(r))
		}
		if len(e.Attributes) > 0 {
			a.Attributes = make(map[entity.Role]json.RawMessage, len(e.Attributes))
			for role, v := range e.Attributes {
				raw, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("data entity %s: encode %s attributes: %w", e.Oddrn, role, err)
				}
				a.Attributes[entity.Role(role)] = raw
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// TaskRun converts the run description.
func (r *RunDoc) TaskRun() entity.TaskRun {
	return entity.TaskRun{
		ID:           r.ID,
		TaskOddrn:    r.TaskOddrn,
		Name:         r.Name,
		Status:       entity.TaskRunStatus(r.Status),
		StatusReason: r.StatusReason,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
}

// Apply ingests the entities, then records the runs and severities.
func (d *Document) Apply(ctx context.Context, ing Ingester) (Summary, error) {
	var sum Summary
	assets, err := d.Assets()
	if err != nil {
		return sum, err
	}
	if len(assets) > 0 {
		if err := ing.Ingest(ctx, assets); err != nil {
			return sum, err
		}
		sum.Entities = len(assets)
	}
	for i := range d.Runs {
		run := d.Runs[i].TaskRun()
		if err := ing.RecordTaskRun(ctx, &run); err != nil {
			return sum, err
		}
		sum.Runs++
	}
	for _, sv := range d.Severities {
		if err := ing.SetSeverity(ctx, sv.Dataset, sv.Test, entity.Severity(sv.Severity)); err != nil {
			return sum, err
		}
		sum.Severities++
	}
	return sum, nil
}
