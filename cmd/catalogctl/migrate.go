package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubeflow/data-catalog/pkg/ha"
	"github.com/kubeflow/data-catalog/pkg/jobs"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog schema",
		Long: `Create or update the catalog schema.

When migration locking is enabled, concurrent replicas serialize on a
database lock so that only one of them migrates at a time.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			runs := jobs.NewRunStore(a.db)
			err := ha.Migrate(cmd.Context(), a.db, a.cfg.HA.MigrationLockEnabled, func() error {
				if err := a.store.AutoMigrate(); err != nil {
					return err
				}
				if err := runs.AutoMigrate(); err != nil {
					return err
				}
				return a.activity.AutoMigrate()
			})
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		}),
	}
}
