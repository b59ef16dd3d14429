package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newDictionaryCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dictionary",
		Short: "List data entity classes and their types",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(_ *cobra.Command, a *app, _ []string) error {
			dict, err := a.svc.Dictionary()
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.printOutput(dict)
			}
			rows := make([][]string, 0, len(dict.Classes))
			for _, c := range dict.Classes {
				names := make([]string, 0, len(c.Types))
				for _, t := range c.Types {
					names = append(names, t.Name)
				}
				rows = append(rows, []string{strconv.Itoa(c.ID), string(c.Role), strings.Join(names, ",")})
			}
			a.out.printTable([]string{"id", "class", "types"}, rows)
			return nil
		}),
	}
}
