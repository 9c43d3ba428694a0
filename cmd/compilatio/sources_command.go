package main

import (
	"github.com/spf13/cobra"

	"compilatio/internal/source"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List registered source connectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.sourceDeps(nil)
			if err != nil {
				return err
			}

			type jsonSource struct {
				Name       string `json:"name"`
				Strategy   string `json:"strategy"`
				Repository string `json:"repository"`
			}
			infos := source.Infos()
			entries := make([]jsonSource, 0, len(infos))
			for _, info := range infos {
				adapter, err := source.Lookup(info.Name, deps)
				if err != nil {
					continue
				}
				entries = append(entries, jsonSource{
					Name:       info.Name,
					Strategy:   info.Strategy,
					Repository: adapter.Repository().Name,
				})
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{entry.Name, entry.Strategy, entry.Repository})
			}
			writeRows(cmd.OutOrStdout(),
				[]string{"Source", "Strategy", "Repository"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
