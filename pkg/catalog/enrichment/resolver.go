// Package enrichment turns a batch of raw data entities into entities with
// fully resolved role payloads, using one bulk lookup per concern for the
// whole batch.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

// AssetFetcher looks up live data entities by oddrn. Unknown oddrns are
// omitted from the result.
type AssetFetcher interface {
	FetchAssets(ctx context.Context, oddrns []string) ([]entity.Asset, error)
}

// RunFetcher returns the most recent run of each task.
type RunFetcher interface {
	FetchLatestRuns(ctx context.Context, taskOddrns []string) (map[string]*entity.TaskRun, error)
}

// GroupReader answers group membership queries in bulk.
type GroupReader interface {
	DirectMembersOf(ctx context.Context, groupOddrns []string) (map[string][]entity.AssetRef, error)
	DescendantCounts(ctx context.Context, groupOddrns []string) (map[string]int64, error)
}

// ConsumerCounter counts the downstream consumers of each dataset.
type ConsumerCounter interface {
	CountConsumers(ctx context.Context, datasetOddrns []string) (map[string]int64, error)
}

// Resolution holds everything looked up for one enrichment pass. It is
// read-only once Resolve returns.
type Resolution struct {
	Assets           map[string]entity.AssetRef
	LatestRuns       map[string]*entity.TaskRun
	GroupMembers     map[string][]entity.AssetRef
	DescendantCounts map[string]int64
	ConsumerCounts   map[string]int64
}

// Resolver performs the bulk lookups of an enrichment pass.
type Resolver struct {
	assets    AssetFetcher
	runs      RunFetcher
	groups    GroupReader
	consumers ConsumerCounter
	logger    *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(assets AssetFetcher, runs RunFetcher, groups GroupReader, consumers ConsumerCounter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		assets:    assets,
		runs:      runs,
		groups:    groups,
		consumers: consumers,
		logger:    logger,
	}
}

// Resolve runs the five lookups concurrently and waits for all of them. A
// lookup whose key set is empty is not issued and yields an empty map. If
// any lookup fails the whole resolution fails.
func (r *Resolver) Resolve(ctx context.Context, assets []entity.Asset, refs []string) (*Resolution, error) {
	qualityTests := oddrnsWithRole(assets, entity.RoleQualityTest)
	groups := oddrnsWithRole(assets, entity.RoleGroup)
	datasets := oddrnsWithRole(assets, entity.RoleDataset)

	res := &Resolution{
		Assets:           map[string]entity.AssetRef{},
		LatestRuns:       map[string]*entity.TaskRun{},
		GroupMembers:     map[string][]entity.AssetRef{},
		DescendantCounts: map[string]int64{},
		ConsumerCounts:   map[string]int64{},
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(refs) > 0 {
		g.Go(func() error {
			found, err := r.assets.FetchAssets(gctx, refs)
			if err != nil {
				return fmt.Errorf("fetch referenced data entities: %w", err)
			}
			m := make(map[string]entity.AssetRef, len(found))
			for i := range found {
				m[found[i].Oddrn] = found[i].Ref()
			}
			res.Assets = m
			return nil
		})
	}

	if len(qualityTests) > 0 {
		g.Go(func() error {
			runs, err := r.runs.FetchLatestRuns(gctx, qualityTests)
			if err != nil {
				return fmt.Errorf("fetch latest quality test runs: %w", err)
			}
			res.LatestRuns = runs
			return nil
		})
	}

	if len(groups) > 0 {
		g.Go(func() error {
			members, err := r.groups.DirectMembersOf(gctx, groups)
			if err != nil {
				return fmt.Errorf("fetch group members: %w", err)
			}
			res.GroupMembers = members
			return nil
		})
		g.Go(func() error {
			counts, err := r.groups.DescendantCounts(gctx, groups)
			if err != nil {
				return fmt.Errorf("count group descendants: %w", err)
			}
			res.DescendantCounts = counts
			return nil
		})
	}

	if len(datasets) > 0 {
		g.Go(func() error {
			counts, err := r.consumers.CountConsumers(gctx, datasets)
			if err != nil {
				return fmt.Errorf("count dataset consumers: %w", err)
			}
			res.ConsumerCounts = counts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Error("reference resolution failed", "entities", len(assets), "error", err)
		return nil, err
	}
	return res, nil
}

func oddrnsWithRole(assets []entity.Asset, role entity.Role) []string {
	var out []string
	for i := range assets {
		if assets[i].HasRole(role) {
			out = append(out, assets[i].Oddrn)
		}
	}
	return out
}
