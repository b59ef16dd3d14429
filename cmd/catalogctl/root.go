package main

import (
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbType     string
	dbDSN      string
	outputFmt  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "CLI for the data entity catalog",
		Long: `catalogctl works directly against the catalog database.

It ingests data entities, shows them enriched with their role specific
details, manages custom groups and statuses, and runs the scheduled status
switch worker.

Configuration is read from --config (or config.yaml in ./configs or the
working directory) and CATALOG_* environment variables. --db-type and
--db-dsn override the database.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.dbType, "db-type", "", "Database type: postgres, mysql, sqlite")
	rootCmd.PersistentFlags().StringVar(&opts.dbDSN, "db-dsn", "", "Database connection string")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFmt, "output", "o", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newDictionaryCmd(opts))
	rootCmd.AddCommand(newEntityCmd(opts))
	rootCmd.AddCommand(newGroupCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newWorkerCmd(opts))

	return rootCmd
}
