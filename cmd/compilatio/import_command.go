package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compilatio/internal/importer"
	"compilatio/internal/logging"
	"compilatio/internal/notifications"
	"compilatio/internal/preflight"
	"compilatio/internal/source"
	"compilatio/internal/store"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		execute       bool
		testRun       bool
		resume        bool
		discoverOnly  bool
		skipDiscovery bool
		limit         int
		dbPath        string
		verbose       bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "import <source>",
		Short: "Run one source's import pipeline",
		Long: "Import discovers a source's manuscripts, fetches and normalizes each\n" +
			"record, and reconciles it against the aggregate database. Without\n" +
			"--execute the run is a dry run: every decision is computed and logged,\n" +
			"nothing is written.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(verbose, asJSON)
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

			if execute {
				checkOut := cmd.OutOrStdout()
				if asJSON {
					checkOut = cmd.ErrOrStderr()
				}
				results := preflight.RunAll(cfg)
				printPreflight(checkOut, results)
				if !preflight.AllPassed(results) {
					return errors.New("preflight checks failed")
				}
			}

			dbTarget := strings.TrimSpace(dbPath)
			switch {
			case dbTarget != "":
			case testRun:
				dbTarget = cfg.TestDatabasePath()
			default:
				dbTarget = cfg.Paths.Database
			}
			st, err := store.OpenPath(dbTarget)
			if err != nil {
				return err
			}
			defer st.Close()

			runner := importer.New(cfg, st, adapter, logger)
			summary, runErr := runner.Run(cmd.Context(), importer.Options{
				Execute:       execute,
				Resume:        resume,
				Test:          testRun,
				DiscoverOnly:  discoverOnly,
				SkipDiscovery: skipDiscovery,
				Limit:         limit,
				Verbose:       verbose,
			})

			if runErr == nil {
				if asJSON {
					if err := writeRunSummaryJSON(cmd, summary); err != nil {
						return err
					}
				} else {
					printRunSummary(cmd.OutOrStdout(), summary)
				}
			}

			if execute {
				notifier := notifications.NewService(cfg)
				notifyCtx := context.WithoutCancel(cmd.Context())
				if runErr != nil {
					if err := notifier.NotifyRunFailed(notifyCtx, adapter.Name(), runErr); err != nil {
						logger.Warn("failure notification not delivered", logging.Error(err))
					}
				} else if !discoverOnly {
					if err := notifier.NotifyRunCompleted(notifyCtx, notifications.RunOutcome{
						Source:     summary.Source,
						Discovered: summary.Discovered,
						Imported:   summary.Imported,
						Updated:    summary.Updated,
						Skipped:    summary.Skipped,
						Failed:     summary.Failed,
						Elapsed:    summary.Elapsed,
					}); err != nil {
						logger.Warn("completion notification not delivered", logging.Error(err))
					}
				}
			}

			return runErr
		},
	}

	cmd.Flags().BoolVar(&execute, "execute", false, "Write to the database (default: dry run)")
	cmd.Flags().BoolVar(&testRun, "test", false, "Trial run: cap at a few items and use a separate test database")
	cmd.Flags().BoolVar(&resume, "resume", false, "Continue from the last checkpoint, skipping completed items")
	cmd.Flags().BoolVar(&discoverOnly, "discover-only", false, "Stop after the discovery phase")
	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "Reuse the cached discovery instead of enumerating again")
	cmd.Flags().IntVar(&limit, "limit", 0, "Cap the number of items processed")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path override")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every item at info level")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the run summary as JSON")

	return cmd
}

func printRunSummary(out io.Writer, summary *importer.Summary) {
	if summary.DryRun {
		fmt.Fprintln(out, "Dry run: no changes were written (pass --execute to write)")
	}
	rows := [][]string{{
		summary.Source,
		strconv.Itoa(summary.Discovered),
		strconv.Itoa(summary.Imported),
		strconv.Itoa(summary.Updated),
		strconv.Itoa(summary.Skipped),
		strconv.Itoa(summary.Failed),
		summary.Elapsed.Round(time.Millisecond).String(),
	}}
	writeRows(out,
		[]string{"Source", "Discovered", "Imported", "Updated", "Skipped", "Failed", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight})
}

func writeRunSummaryJSON(cmd *cobra.Command, summary *importer.Summary) error {
	type jsonSummary struct {
		Source     string `json:"source"`
		RunID      string `json:"run_id"`
		DryRun     bool   `json:"dry_run"`
		Discovered int    `json:"discovered"`
		Imported   int    `json:"imported"`
		Updated    int    `json:"updated"`
		Skipped    int    `json:"skipped"`
		Failed     int    `json:"failed"`
		Elapsed    string `json:"elapsed"`
	}
	return writeJSON(cmd, jsonSummary{
		Source:     summary.Source,
		RunID:      summary.RunID,
		DryRun:     summary.DryRun,
		Discovered: summary.Discovered,
		Imported:   summary.Imported,
		Updated:    summary.Updated,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
		Elapsed:    summary.Elapsed.Round(time.Millisecond).String(),
	})
}
