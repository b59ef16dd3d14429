package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kubeflow/data-catalog/pkg/audit"
	"github.com/kubeflow/data-catalog/pkg/catalog/service"
	"github.com/kubeflow/data-catalog/pkg/catalog/status"
	"github.com/kubeflow/data-catalog/pkg/catalog/store"
	"github.com/kubeflow/data-catalog/pkg/config"
	"github.com/kubeflow/data-catalog/pkg/logging"
)

// app is everything a command needs to talk to the catalog.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	store     *store.Store
	svc       *service.Service
	lifecycle *status.Lifecycle
	activity  *audit.Store
	logger    *slog.Logger
	out       *printer
	closers   []func()
}

func (o *globalOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dbType != "" {
		cfg.Database.Type = o.dbType
	}
	if o.dbDSN != "" {
		cfg.Database.DSN = o.dbDSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, syncLogs, err := logging.New(logging.Options{Level: cfg.Log.Level, Mode: cfg.Log.Mode})
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Database.Type, cfg.Database.DSN, store.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		syncLogs()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		store:   store.NewStore(db),
		logger:  logger,
		out:     newPrinter(cmd.OutOrStdout(), o.outputFmt),
		closers: []func(){syncLogs},
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	a.lifecycle = status.NewLifecycle(cfg.StatusSwitch.DeletedRetention)
	a.svc = service.New(a.store, cfg.ServiceConfig(), a.lifecycle, logger)
	a.activity = audit.NewStore(db, cfg.Audit.Actor)
	if cfg.Audit.Enabled {
		a.svc.SetActivityLog(a.activity)
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp wraps a command body with opening and closing the app.
func withApp(opts *globalOptions, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := opts.open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
