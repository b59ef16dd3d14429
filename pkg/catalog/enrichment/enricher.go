package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/kubeflow/data-catalog/pkg/catalog/attributes"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// BatchResolver resolves the references of one enrichment pass.
type BatchResolver interface {
	Resolve(ctx context.Context, assets []entity.Asset, refs []string) (*Resolution, error)
}

// ParentLookup returns the parent groups of each data entity.
type ParentLookup interface {
	ParentsOf(ctx context.Context, oddrns []string) (map[string][]entity.AssetRef, error)
}

// Enricher builds role payloads for batches of data entities.
type Enricher struct {
	resolver BatchResolver
	parents  ParentLookup
	logger   *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(resolver BatchResolver, parents ParentLookup, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{resolver: resolver, parents: parents, logger: logger}
}

// Enrich returns copies of the assets with one payload per held role. The
// resolver is called exactly once for the whole batch.
func (e *Enricher) Enrich(ctx context.Context, assets []entity.Asset) ([]entity.Asset, error) {
	if len(assets) == 0 {
		return []entity.Asset{}, nil
	}

	drafts, refs, err := attributes.ExtractAll(assets)
	if err != nil {
		return nil, err
	}

	res, err := e.resolver.Resolve(ctx, assets, refs)
	if err != nil {
		return nil, fmt.Errorf("enrich data entities: %w", err)
	}

	out := make([]entity.Asset, len(assets))
	for i := range assets {
		out[i] = assets[i]
		out[i].Payloads = merge(drafts[i], res)
	}

	e.logger.Debug("enriched data entities", "count", len(out), "references", len(refs))
	return out, nil
}

// AttachParentGroups returns copies of the assets with their parent groups
// set, using one lookup for the whole batch.
func (e *Enricher) AttachParentGroups(ctx context.Context, assets []entity.Asset) ([]entity.Asset, error) {
	if len(assets) == 0 {
		return []entity.Asset{}, nil
	}
	oddrns := make([]string, 0, len(assets))
	for i := range assets {
		oddrns = append(oddrns, assets[i].Oddrn)
	}

	parents, err := e.parents.ParentsOf(ctx, oddrns)
	if err != nil {
		return nil, fmt.Errorf("fetch parent groups: %w", err)
	}

	out := make([]entity.Asset, len(assets))
	for i := range assets {
		out[i] = assets[i]
		if p := parents[assets[i].Oddrn]; len(p) > 0 {
			out[i].ParentGroups = p
		} else {
			out[i].ParentGroups = nil
		}
	}
	return out, nil
}

func merge(d *attributes.Draft, res *Resolution) map[entity.Role]entity.Payload {
	payloads := make(map[entity.Role]entity.Payload, len(d.Attributes))

	if a := d.Dataset(); a != nil {
		// a dataset missing from the count map has zero consumers
		payloads[entity.RoleDataset] = &entity.DatasetPayload{
			RowsCount:      a.RowsCount,
			FieldsCount:    a.FieldsCount,
			ConsumersCount: res.ConsumerCounts[d.Oddrn],
		}
	}

	if a := d.Transformer(); a != nil {
		payloads[entity.RoleTransformer] = &entity.TransformerPayload{
			SourceCodeURL: a.SourceCodeURL,
			Sources:       resolveRefs(a.SourceOddrns, res.Assets),
			Targets:       resolveRefs(a.TargetOddrns, res.Assets),
		}
	}

	if a := d.QualityTest(); a != nil {
		p := &entity.QualityTestPayload{
			SuiteName:   a.SuiteName,
			SuiteURL:    a.SuiteURL,
			LinkedURLs:  a.LinkedURLs,
			Expectation: copyExpectation(a.Expectation),
			Datasets:    resolveRefs(a.DatasetOddrns, res.Assets),
		}
		if run, ok := res.LatestRuns[d.Oddrn]; ok && run != nil {
			r := *run
			p.LatestRun = &r
		}
		payloads[entity.RoleQualityTest] = p
	}

	if a := d.Consumer(); a != nil {
		payloads[entity.RoleConsumer] = &entity.ConsumerPayload{
			Inputs: resolveRefs(a.InputOddrns, res.Assets),
		}
	}

	if a := d.Input(); a != nil {
		payloads[entity.RoleInput] = &entity.InputPayload{
			Outputs: resolveRefs(a.OutputOddrns, res.Assets),
		}
	}

	if _, ok := d.Attributes[entity.RoleGroup]; ok {
		members := res.GroupMembers[d.Oddrn]
		descendants := res.DescendantCounts[d.Oddrn]
		payloads[entity.RoleGroup] = &entity.GroupPayload{
			Entities:    append([]entity.AssetRef{}, members...),
			ItemsCount:  int64(len(members)) + descendants,
			HasChildren: descendants != 0,
		}
	}

	return payloads
}

// resolveRefs keeps declared order, drops repeats and drops oddrns that did
// not resolve.
func resolveRefs(oddrns []string, resolved map[string]entity.AssetRef) []entity.AssetRef {
	out := []entity.AssetRef{}
	for _, oddrn := range attributes.UniqueOddrns(oddrns) {
		if ref, ok := resolved[oddrn]; ok {
			out = append(out, ref)
		}
	}
	return out
}

func copyExpectation(e entity.Expectation) entity.Expectation {
	return entity.Expectation{Type: e.Type, Parameters: maps.Clone(e.Parameters)}
}
