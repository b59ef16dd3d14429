package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

func newEntityCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entity",
		Aliases: []string{"entities"},
		Short:   "Inspect and ingest data entities",
	}
	cmd.AddCommand(newEntityGetCmd(opts))
	cmd.AddCommand(newEntityListCmd(opts))
	cmd.AddCommand(newEntityDimensionsCmd(opts))
	cmd.AddCommand(newEntityIngestCmd(opts))
	cmd.AddCommand(newEntityRenameCmd(opts))
	cmd.AddCommand(newEntityQualityTestsCmd(opts))
	cmd.AddCommand(newEntityUsageCmd(opts))
	cmd.AddCommand(newEntityDomainsCmd(opts))
	cmd.AddCommand(newEntityActivityCmd(opts))
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid data entity id %q", s)
	}
	return id, nil
}

func newEntityGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|oddrn>",
		Short: "Show a data entity with its enriched details",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var details *entity.Asset
			if strings.HasPrefix(args[0], "//") {
				d, err := a.svc.GetDetailsByOddrn(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				details = d
			} else {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				d, err := a.svc.GetDetails(cmd.Context(), id)
				if err != nil {
					return err
				}
				details = d
			}
			if a.out.structured() {
				return a.out.printOutput(details)
			}
			return printDetails(a.out, details)
		}),
	}
}

func newEntityListCmd(opts *globalOptions) *cobra.Command {
	var (
		size      int
		pageToken int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live data entities ordered by id",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			assets, next, err := a.svc.List(cmd.Context(), size, pageToken)
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(map[string]any{
					"items":         assets,
					"nextPageToken": next,
					"size":          len(assets),
				})
			}
			if err := a.out.printAssets(assets); err != nil {
				return err
			}
			if next > 0 {
				fmt.Fprintf(a.out.w, "\nNext page: --page-token %d\n", next)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&size, "size", 0, "Page size (default from config, at most 100)")
	cmd.Flags().Int64Var(&pageToken, "page-token", 0, "Id after which the page starts")
	return cmd
}

func printDetails(p *printer, d *entity.Asset) error {
	p.printTable([]string{"field", "value"}, [][]string{
		{"id", strconv.FormatInt(d.ID, 10)},
		{"oddrn", d.Oddrn},
		{"name", d.Name()},
		{"type", typeName(d.TypeID)},
		{"status", string(d.Status)},
		{"switch time", formatTime(d.StatusSwitchTime)},
		{"views", strconv.FormatInt(d.ViewCount, 10)},
		{"groups", joinRefs(d.ParentGroups)},
	})
	roles := make([]string, 0, len(d.Payloads))
	for r := range d.Payloads {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		data, err := json.MarshalIndent(d.Payloads[entity.Role(r)], "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(p.w, "\n%s:\n%s\n", r, data)
	}
	return nil
}

func joinRefs(refs []entity.AssetRef) string {
	if len(refs) == 0 {
		return "-"
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return strings.Join(names, ",")
}

func newEntityDimensionsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dimensions <oddrn>...",
		Short: "Show enriched data entities by oddrn",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			assets, err := a.svc.GetDimensions(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.out.printAssets(assets)
		}),
	}
}

func newEntityRenameCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Set the internal name of a data entity",
		Long:  "Set the internal name of a data entity. An empty name clears it.",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.SetInternalName(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data entity %d renamed\n", id)
			return nil
		}),
	}
}

func newEntityQualityTestsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quality-tests <dataset-id>",
		Short: "List the quality tests of a dataset with their severities",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tests, err := a.svc.QualityTestsWithSeverity(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(tests)
			}
			rows := make([][]string, 0, len(tests))
			for i := range tests {
				t := &tests[i]
				sev, last := "-", "-"
				if qt, ok := t.Payloads[entity.RoleQualityTest].(*entity.QualityTestPayload); ok {
					if qt.Severity != nil {
						sev = string(*qt.Severity)
					}
					if qt.LatestRun != nil {
						last = string(qt.LatestRun.Status)
					}
				}
				rows = append(rows, []string{strconv.FormatInt(t.ID, 10), truncate(t.Oddrn, 60), t.Name(), sev, last})
			}
			a.out.printTable([]string{"id", "oddrn", "name", "severity", "last run"}, rows)
			return nil
		}),
	}
}

func newEntityUsageCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show data entity counts per class and type",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			usage, err := a.svc.UsageInfo(cmd.Context())
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(usage)
			}
			fmt.Fprintf(a.out.w, "Total: %d  Filled: %d\n\n", usage.Total, usage.Filled)
			var rows [][]string
			for _, c := range usage.Classes {
				for _, t := range c.Types {
					rows = append(rows, []string{string(c.Role), strconv.FormatInt(c.Count, 10), t.Name, strconv.FormatInt(t.Count, 10)})
				}
			}
			a.out.printTable([]string{"class", "class count", "type", "count"}, rows)
			return nil
		}),
	}
}

func newEntityDomainsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List domain groups with their member counts",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			domains, err := a.svc.Domains(cmd.Context())
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(domains)
			}
			rows := make([][]string, 0, len(domains))
			for _, d := range domains {
				rows = append(rows, []string{
					strconv.FormatInt(d.Domain.ID, 10),
					truncate(d.Domain.Oddrn, 60),
					d.Domain.Name,
					strconv.FormatInt(d.ChildrenCount, 10),
				})
			}
			a.out.printTable([]string{"id", "oddrn", "name", "members"}, rows)
			return nil
		}),
	}
}
