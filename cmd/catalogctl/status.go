package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Manage data entity statuses",
	}
	cmd.AddCommand(newStatusSetCmd(opts))
	return cmd
}

func newStatusSetCmd(opts *globalOptions) *cobra.Command {
	var (
		switchTime string
		propagate  bool
	)

	cmd := &cobra.Command{
		Use:   "set <id> <status>",
		Short: "Set the status of a data entity",
		Long: `Set the status of a data entity.

Valid statuses: UNASSIGNED, DRAFT, STABLE, DEPRECATED, DELETED.
DEPRECATED and DELETED require --switch-time. With --propagate, a group
passes the new status on to its direct members.`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			change := entity.StatusChange{
				Status:    entity.Status(strings.ToUpper(args[1])),
				Propagate: propagate,
			}
			if switchTime != "" {
				t, err := time.Parse(time.RFC3339, switchTime)
				if err != nil {
					return fmt.Errorf("invalid --switch-time %q: %w", switchTime, err)
				}
				change.SwitchTime = &t
			}

			records, err := a.svc.UpdateStatus(cmd.Context(), id, change)
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(records)
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					strconv.FormatInt(r.ID, 10),
					string(r.Status),
					formatTime(r.SwitchTime),
					formatTime(r.StatusUpdatedAt),
				})
			}
			a.out.printTable([]string{"id", "status", "switch time", "updated at"}, rows)
			return nil
		}),
	}

	cmd.Flags().StringVar(&switchTime, "switch-time", "", "Time of the next automatic switch (RFC3339)")
	cmd.Flags().BoolVar(&propagate, "propagate", false, "Propagate the status to the members of a group")
	return cmd
}
