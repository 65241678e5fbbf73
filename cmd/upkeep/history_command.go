package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"upkeep/internal/config"
	"upkeep/internal/runs"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past maintenance runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := runs.Open(cfg.Paths.StateDir)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.StartedAt.Local().Format("2006-01-02 15:04"),
					historyDuration(rec),
					historyMode(rec),
					strconv.Itoa(rec.ChangedPackages),
					strconv.Itoa(rec.Warnings),
					historyOutcome(rec),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Duration", "Mode", "Changed", "Warnings", "Outcome"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func historyDuration(rec runs.Record) string {
	if !rec.Finished() {
		return "-"
	}
	d := rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func historyMode(rec runs.Record) string {
	switch {
	case rec.DryRun:
		return "dry-run"
	case rec.SecurityOnly:
		return "security"
	default:
		return "full"
	}
}

func historyOutcome(rec runs.Record) string {
	switch {
	case rec.FatalError != "":
		return "failed: " + rec.FatalError
	case !rec.Finished():
		return "interrupted"
	case rec.KernelChanged:
		return "ok, kernel updated (" + rec.RestartState + ")"
	default:
		return "ok"
	}
}
