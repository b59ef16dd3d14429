package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"

	"github.com/kubeflow/data-catalog/pkg/audit"
	"github.com/kubeflow/data-catalog/pkg/catalog/status"
	"github.com/kubeflow/data-catalog/pkg/ha"
	"github.com/kubeflow/data-catalog/pkg/jobs"
)

func newWorkerCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled status switch worker",
	}
	cmd.AddCommand(newWorkerRunCmd(opts))
	cmd.AddCommand(newWorkerOnceCmd(opts))
	cmd.AddCommand(newWorkerHistoryCmd(opts))
	return cmd
}

func (a *app) newWorker() *jobs.StatusSwitchWorker {
	switchCfg := a.cfg.SwitchConfig()
	switcher := status.NewSwitcher(a.store, a.lifecycle, switchCfg.BatchSize, a.logger)
	return jobs.NewStatusSwitchWorker(switcher, jobs.NewRunStore(a.db), switchCfg, nil, a.logger)
}

func newWorkerRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the status switch worker until interrupted",
		Long: `Run the status switch worker until interrupted.

The same process prunes activity events older than the configured
retention. With leader election enabled, only the replica holding the lease
does either; the others wait to take over.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			defer glog.Flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			haCfg := a.cfg.HAConfig()
			var client kubernetes.Interface
			if haCfg.LeaderElectionEnabled {
				var err error
				client, err = ha.NewClientset(haCfg.Kubeconfig)
				if err != nil {
					glog.Fatalf("Failed to create Kubernetes client for leader election: %v", err)
				}
			}

			worker := a.newWorker()
			retention := audit.NewRetentionWorker(a.activity, a.cfg.Audit.RetentionDays, a.logger)
			ha.RunAsLeader(ctx, haCfg, client, a.logger, func(leaderCtx context.Context) {
				var wg sync.WaitGroup
				wg.Add(1)
				go func() {
					defer wg.Done()
					retention.Run(leaderCtx)
				}()
				worker.Run(leaderCtx)
				wg.Wait()
			})
			a.logger.Info("status switch worker stopped")
			return nil
		}),
	}
}

func newWorkerOnceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single status switch pass",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			res, err := a.newWorker().RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if res == nil {
				res = &status.SwitchResult{}
			}
			if a.out.structured() {
				return a.out.printOutput(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched %d data entities, purged %d\n", res.Switched, res.Purged)
			return nil
		}),
	}
}

func newWorkerHistoryCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent status switch passes",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			runs, err := jobs.NewRunStore(a.db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(runs)
			}
			rows := make([][]string, 0, len(runs))
			for i := range runs {
				r := &runs[i]
				rows = append(rows, []string{
					r.ID,
					r.Holder,
					string(r.State),
					formatTime(&r.StartedAt),
					strconv.Itoa(r.Switched),
					strconv.FormatInt(r.Purged, 10),
					truncate(r.LastError, 40),
				})
			}
			a.out.printTable([]string{"id", "holder", "state", "started", "switched", "purged", "error"}, rows)
			return nil
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of passes to list")
	return cmd
}
