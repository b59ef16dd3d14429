package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEntityActivityCmd(opts *globalOptions) *cobra.Command {
	var (
		size      int
		pageToken string
	)

	cmd := &cobra.Command{
		Use:   "activity <id>",
		Short: "Show the activity log of a data entity",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			events, next, total, err := a.activity.ListByEntity(cmd.Context(), id, size, pageToken)
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(map[string]any{
					"items":         events,
					"nextPageToken": next,
					"size":          total,
				})
			}
			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					formatTime(&e.CreatedAt),
					string(e.EventType),
					e.Actor,
					truncate(string(e.OldValue), 40),
					truncate(string(e.NewValue), 40),
				})
			}
			a.out.printTable([]string{"time", "event", "actor", "old", "new"}, rows)
			if next != "" {
				fmt.Fprintf(a.out.w, "\nNext page: --page-token %s\n", next)
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Token of the page to show")
	return cmd
}
