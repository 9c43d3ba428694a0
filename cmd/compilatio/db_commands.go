package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"compilatio/internal/reconcile"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the aggregate database",
	}

	dbCmd.AddCommand(newDBStatsCommand(ctx))
	dbCmd.AddCommand(newDBDedupeCommand(ctx))
	dbCmd.AddCommand(newDBPathCommand(ctx))

	return dbCmd
}

func newDBStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-repository aggregate counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					return writeDBStatsJSON(cmd, stats)
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Database is empty")
					return nil
				}

				total := 0
				rows := make([][]string, 0, len(stats))
				for _, stat := range stats {
					total += stat.Total
					rows = append(rows, []string{
						stat.RepositoryName,
						strconv.Itoa(stat.Total),
						strconv.Itoa(stat.Dated),
						strconv.Itoa(stat.WithImages),
						strconv.Itoa(stat.WithThumbnails),
					})
				}
				writeRows(cmd.OutOrStdout(),
					[]string{"Repository", "Manuscripts", "Dated", "With Images", "Thumbnails"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight})
				fmt.Fprintf(cmd.OutOrStdout(), "Total manuscripts: %d\n", total)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func writeDBStatsJSON(cmd *cobra.Command, stats []store.RepositoryStats) error {
	type jsonStat struct {
		Repository     string `json:"repository"`
		ShortName      string `json:"short_name"`
		Total          int    `json:"total"`
		Dated          int    `json:"dated"`
		WithImages     int    `json:"with_images"`
		WithThumbnails int    `json:"with_thumbnails"`
	}
	entries := make([]jsonStat, 0, len(stats))
	for _, stat := range stats {
		entries = append(entries, jsonStat{
			Repository:     stat.RepositoryName,
			ShortName:      stat.ShortName,
			Total:          stat.Total,
			Dated:          stat.Dated,
			WithImages:     stat.WithImages,
			WithThumbnails: stat.WithThumbnails,
		})
	}
	return writeJSON(cmd, entries)
}

func newDBDedupeCommand(ctx *commandContext) *cobra.Command {
	var execute bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dedupe <source>",
		Short: "Resolve fallback-shelfmark duplicates for one source",
		Long: "Dedupe refetches the manifest of every row keyed by a fallback\n" +
			"identifier and reads the proper classmark from its label. Unclaimed\n" +
			"classmarks rename the row; claimed ones merge it into the proper row.\n" +
			"Without --execute decisions are only reported.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(false, asJSON)
			if err != nil {
				return err
			}
			deps, err := ctx.sourceDeps(logger)
			if err != nil {
				return err
			}
			adapter, err := source.Lookup(args[0], deps)
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				repoID, err := st.FindRepositoryID(cmd.Context(), adapter.Repository().ShortName)
				if err != nil {
					return err
				}
				if repoID == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No manuscripts recorded for source %s\n", adapter.Name())
					return nil
				}

				deduper := reconcile.NewDeduper(st, deps.Client, logger, cfg.RequestDelay())
				result, err := deduper.Run(cmd.Context(), repoID, execute)
				if err != nil {
					return err
				}

				if asJSON {
					return writeDedupeResultJSON(cmd, result, !execute)
				}
				if !execute {
					fmt.Fprintln(cmd.OutOrStdout(), "Dry run: no changes were written (pass --execute to write)")
				}
				rows := [][]string{{
					strconv.Itoa(result.Examined),
					strconv.Itoa(result.Renamed),
					strconv.Itoa(result.Merged),
					strconv.Itoa(result.Retained),
					strconv.Itoa(result.Failed),
				}}
				writeRows(cmd.OutOrStdout(),
					[]string{"Examined", "Renamed", "Merged", "Retained", "Failed"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "Apply renames and merges (default: dry run)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func writeDedupeResultJSON(cmd *cobra.Command, result *reconcile.DedupeResult, dryRun bool) error {
	type jsonResult struct {
		DryRun   bool `json:"dry_run"`
		Examined int  `json:"examined"`
		Renamed  int  `json:"renamed"`
		Merged   int  `json:"merged"`
		Retained int  `json:"retained"`
		Failed   int  `json:"failed"`
	}
	return writeJSON(cmd, jsonResult{
		DryRun:   dryRun,
		Examined: result.Examined,
		Renamed:  result.Renamed,
		Merged:   result.Merged,
		Retained: result.Retained,
		Failed:   result.Failed,
	})
}

func newDBPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved database path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Paths.Database)
			return nil
		},
	}
}
