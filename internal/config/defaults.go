package config

const (
	defaultJournalRetentionDays = 30
	defaultAptLockTimeout       = 60
	defaultMinFreeMB            = 2048
	defaultFreeSpacePath        = "/var"
	defaultProbeTimeoutSeconds  = 2
	defaultLockWaitTimeout      = 600
	defaultLockPollInterval     = 3
	defaultStateDir             = "/var/lib/upkeep"
	defaultBackupDir            = "/var/backups/upkeep"
	defaultLogDir               = "/var/log/upkeep"
	defaultEtcDir               = "/etc"
	defaultRebootRequiredPath   = "/run/reboot-required"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

func defaultProbeTargets() []string {
	return []string{"1.1.1.1:443", "8.8.8.8:443", "9.9.9.9:443"}
}

func defaultLockPaths() []string {
	return []string{
		"/var/lib/dpkg/lock-frontend",
		"/var/lib/dpkg/lock",
		"/var/lib/apt/lists/lock",
		"/var/cache/apt/archives/lock",
	}
}

func defaultProcessNames() []string {
	return []string{"apt", "apt-get", "dpkg", "aptitude", "unattended-upgrade"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Updates: Updates{
			JournalRetentionDays: defaultJournalRetentionDays,
			AptLockTimeout:       defaultAptLockTimeout,
		},
		Guards: Guards{
			MinFreeMB:           defaultMinFreeMB,
			FreeSpacePath:       defaultFreeSpacePath,
			ProbeTargets:        defaultProbeTargets(),
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Lock: Lock{
			WaitTimeout:  defaultLockWaitTimeout,
			PollInterval: defaultLockPollInterval,
			LockPaths:    defaultLockPaths(),
			ProcessNames: defaultProcessNames(),
		},
		Paths: Paths{
			StateDir:           defaultStateDir,
			BackupDir:          defaultBackupDir,
			LogDir:             defaultLogDir,
			EtcDir:             defaultEtcDir,
			RebootRequiredPath: defaultRebootRequiredPath,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
