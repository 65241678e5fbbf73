package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"upkeep/internal/config"
	"upkeep/internal/logging"
	"upkeep/internal/orchestrator"
	"upkeep/internal/runs"
	"upkeep/internal/snapshot"
)

func runMaintenance(cmd *cobra.Command, flags *runFlags) error {
	cfg, _, _, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cmd, flags, cfg)

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	start := time.Now()
	logPath := strings.TrimSpace(flags.logFile)
	if logPath == "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "upkeep-"+start.UTC().Format("20060102-150405")+".log")
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []orchestrator.Option{}
	store, err := runs.Open(cfg.Paths.StateDir)
	if err != nil {
		logger.Warn("run history unavailable", logging.Error(err))
	} else {
		defer store.Close()
		opts = append(opts, orchestrator.WithHistory(store))
	}

	orch := orchestrator.New(cfg, logger, opts...)
	res, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	// The summary goes to the run log too, same as the logger output.
	summaryOut := io.Writer(cmd.OutOrStdout())
	if logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
		logger.Warn("run log unavailable for summary", logging.Error(err))
	} else {
		defer logFile.Close()
		summaryOut = io.MultiWriter(summaryOut, logFile)
	}
	printChangeSummary(summaryOut, res)
	return nil
}

// applyFlagOverrides layers explicitly set flags over the file values.
func applyFlagOverrides(cmd *cobra.Command, flags *runFlags, cfg *config.Config) {
	cfg.DryRun = flags.dryRun
	if cmd.Flags().Changed("security-only") {
		cfg.Updates.SecurityOnly = flags.securityOnly
	}
	if cmd.Flags().Changed("skip-flatpak") {
		cfg.Updates.SkipFlatpak = flags.skipFlatpak
	}
	if cmd.Flags().Changed("backup-etc") {
		cfg.Updates.BackupEtc = flags.backupEtc
	}
	if cmd.Flags().Changed("min-free-mb") {
		cfg.Guards.MinFreeMB = flags.minFreeMB
	}
	if cmd.Flags().Changed("lock-timeout") {
		cfg.Lock.WaitTimeout = flags.lockTimeout
	}
	if cmd.Flags().Changed("journal-days") {
		cfg.Updates.JournalRetentionDays = flags.journalDays
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
}

func printChangeSummary(out io.Writer, res orchestrator.Result) {
	if len(res.Changes) == 0 {
		fmt.Fprintln(out, "No package changes.")
	} else {
		rows := make([][]string, 0, len(res.Changes))
		for _, change := range res.Changes {
			rows = append(rows, []string{change.Name, change.Old, change.New, changeKind(change)})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Package", "Old", "New", "Change"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
		installed, removed, upgraded := res.Changes.Counts()
		fmt.Fprintf(out, "%d installed, %d removed, %d upgraded\n", installed, removed, upgraded)
	}

	for _, artifact := range res.Artifacts {
		fmt.Fprintf(out, "Backup: %s (%s)\n", artifact.Path, humanize.IBytes(uint64(artifact.Size)))
	}
	if res.Warnings > 0 {
		fmt.Fprintf(out, "Completed with %d warnings; see the run log for details.\n", res.Warnings)
	}
}

func changeKind(change snapshot.Change) string {
	switch {
	case change.Installed():
		return "installed"
	case change.Removed():
		return "removed"
	default:
		return "upgraded"
	}
}
