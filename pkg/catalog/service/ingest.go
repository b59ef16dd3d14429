package service

import (
	"context"
	"fmt"

	"github.com/kubeflow/data-catalog/pkg/catalog/attributes"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
	"github.com/kubeflow/data-catalog/pkg/catalog/store"
)

// Ingest upserts a batch of data entities. Referenced oddrns that are not
// known yet are stored as hollow entities, and lineage and quality test
// links are derived from the specific attributes.
func (s *Service) Ingest(ctx context.Context, assets []entity.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	if len(assets) > s.cfg.MaxBatchSize {
		return entity.NewValidationError(
			fmt.Sprintf("too many data entities in one batch: %d > %d", len(assets), s.cfg.MaxBatchSize))
	}
	for i := range assets {
		if err := assets[i].Validate(roleOf); err != nil {
			return err
		}
	}

	drafts, refs, err := attributes.ExtractAll(assets)
	if err != nil {
		return err
	}

	err = s.groups.Locked(func() error {
		return s.store.Transaction(ctx, func(tx *store.Store) error {
			if err := tx.IngestAssets(ctx, assets); err != nil {
				return err
			}
			if err := tx.CreateHollow(ctx, refs); err != nil {
				return err
			}
			for _, d := range drafts {
				if err := s.link(ctx, tx, d); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("ingested data entities", "count", len(assets), "references", len(refs))
	return nil
}

func (s *Service) link(ctx context.Context, tx *store.Store, d *attributes.Draft) error {
	if a := d.Group(); a != nil {
		members := a.Members(d.Oddrn)
		if err := tx.CreateHollow(ctx, members); err != nil {
			return err
		}
		if err := s.groups.SyncDerivedMembers(ctx, tx, d.Oddrn, members); err != nil {
			return err
		}
	}
	if a := d.Transformer(); a != nil {
		for _, src := range a.SourceOddrns {
			if err := tx.AddLineage(ctx, src, d.Oddrn, d.Oddrn); err != nil {
				return err
			}
		}
		for _, dst := range a.TargetOddrns {
			if err := tx.AddLineage(ctx, d.Oddrn, dst, d.Oddrn); err != nil {
				return err
			}
		}
	}
	if a := d.Consumer(); a != nil {
		for _, in := range a.InputOddrns {
			if err := tx.AddLineage(ctx, in, d.Oddrn, d.Oddrn); err != nil {
				return err
			}
		}
	}
	if a := d.Input(); a != nil {
		for _, out := range a.OutputOddrns {
			if err := tx.AddLineage(ctx, d.Oddrn, out, d.Oddrn); err != nil {
				return err
			}
		}
	}
	if a := d.QualityTest(); a != nil {
		for _, ds := range a.DatasetOddrns {
			if err := tx.LinkQualityTest(ctx, ds, d.Oddrn); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTaskRun stores a run of a transformer or quality test.
func (s *Service) RecordTaskRun(ctx context.Context, run *entity.TaskRun) error {
	if run.TaskOddrn == "" {
		return entity.NewValidationError("task run oddrn is required")
	}
	return s.store.SaveTaskRun(ctx, run)
}

// SetSeverity sets the severity of a quality test for a dataset.
func (s *Service) SetSeverity(ctx context.Context, datasetOddrn, testOddrn string, severity entity.Severity) error {
	if !severity.Valid() {
		return entity.NewValidationError(fmt.Sprintf("unknown severity %q", severity))
	}
	return s.store.SetSeverity(ctx, datasetOddrn, testOddrn, severity)
}
