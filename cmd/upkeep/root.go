package main

import (
	"github.com/spf13/cobra"
)

// runFlags carries the root command's flag values. Only flags the user set
// override the configuration file.
type runFlags struct {
	configPath   string
	dryRun       bool
	securityOnly bool
	skipFlatpak  bool
	backupEtc    bool
	minFreeMB    int
	lockTimeout  int
	journalDays  int
	logFile      string
	logLevel     string
	logFormat    string
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:           "upkeep",
		Short:         "Lock-safe host maintenance for Debian and Ubuntu systems",
		Long: `Upkeep runs one maintenance pass on the local host: preflight guards,
a polite wait for the package database, manifest backups, apt and flatpak
updates, a change report, and a kernel-aware restart decision.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Show pending changes without applying anything")
	rootCmd.Flags().BoolVar(&flags.securityOnly, "security-only", false, "Apply security upgrades only")
	rootCmd.Flags().BoolVar(&flags.skipFlatpak, "skip-flatpak", false, "Skip flatpak application updates")
	rootCmd.Flags().BoolVar(&flags.backupEtc, "backup-etc", false, "Archive /etc before updating")
	rootCmd.Flags().IntVar(&flags.minFreeMB, "min-free-mb", 0, "Minimum free space in MB required to proceed")
	rootCmd.Flags().IntVar(&flags.lockTimeout, "lock-timeout", 0, "Seconds to wait for the package database")
	rootCmd.Flags().IntVar(&flags.journalDays, "journal-days", 0, "Vacuum journal entries older than this many days")
	rootCmd.Flags().StringVar(&flags.logFile, "log-file", "", "Run log destination (default <log_dir>/upkeep-<stamp>.log)")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format (console or json)")

	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newDoctorCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newTestNotifyCommand())

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	return rootCmd
}
