package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compilatio/internal/checkpoint"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [source]",
		Short: "Show checkpoint progress for import runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.ProgressDir()

			var names []string
			if len(args) == 1 {
				names = []string{strings.ToLower(strings.TrimSpace(args[0]))}
			} else {
				names, err = checkpoint.Sources(dir)
				if err != nil {
					return err
				}
			}

			type jsonStatus struct {
				Source      string `json:"source"`
				Phase       string `json:"phase"`
				RunID       string `json:"run_id,omitempty"`
				Discovered  int    `json:"discovered"`
				Completed   int    `json:"completed"`
				Failed      int    `json:"failed"`
				LastUpdated string `json:"last_updated,omitempty"`
			}
			entries := make([]jsonStatus, 0, len(names))
			for _, name := range names {
				status, err := checkpoint.ReadStatus(dir, name)
				if err != nil {
					return err
				}
				if status == nil {
					if len(args) == 1 {
						return fmt.Errorf("no import runs recorded for source %q", name)
					}
					continue
				}
				entry := jsonStatus{
					Source:     status.Source,
					Phase:      string(status.Phase),
					RunID:      status.RunID,
					Discovered: status.TotalDiscovered,
					Completed:  status.Completed,
					Failed:     status.Failed,
				}
				if !status.LastUpdated.IsZero() {
					entry.LastUpdated = status.LastUpdated.UTC().Format(time.RFC3339)
				}
				entries = append(entries, entry)
			}

			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No import runs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Source,
					entry.Phase,
					strconv.Itoa(entry.Discovered),
					strconv.Itoa(entry.Completed),
					strconv.Itoa(entry.Failed),
					entry.LastUpdated,
				})
			}
			writeRows(cmd.OutOrStdout(),
				[]string{"Source", "Phase", "Discovered", "Completed", "Failed", "Last Update"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
