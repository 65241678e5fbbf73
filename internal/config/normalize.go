package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGuards()
	c.normalizeLock()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		c.Paths.BackupDir = defaultBackupDir
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.EtcDir) == "" {
		c.Paths.EtcDir = defaultEtcDir
	}
	if c.Paths.EtcDir, err = expandPath(c.Paths.EtcDir); err != nil {
		return fmt.Errorf("paths.etc_dir: %w", err)
	}
	c.Paths.RebootRequiredPath = strings.TrimSpace(c.Paths.RebootRequiredPath)
	if c.Paths.RebootRequiredPath == "" {
		c.Paths.RebootRequiredPath = defaultRebootRequiredPath
	}
	return nil
}

func (c *Config) normalizeGuards() {
	c.Guards.FreeSpacePath = strings.TrimSpace(c.Guards.FreeSpacePath)
	if c.Guards.FreeSpacePath == "" {
		c.Guards.FreeSpacePath = defaultFreeSpacePath
	}
	if len(c.Guards.ProbeTargets) == 0 {
		c.Guards.ProbeTargets = defaultProbeTargets()
	}
	targets := make([]string, 0, len(c.Guards.ProbeTargets))
	for _, target := range c.Guards.ProbeTargets {
		if trimmed := strings.TrimSpace(target); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	c.Guards.ProbeTargets = targets
	if c.Guards.ProbeTimeoutSeconds <= 0 {
		c.Guards.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeLock() {
	if c.Lock.PollInterval <= 0 {
		c.Lock.PollInterval = defaultLockPollInterval
	}
	if len(c.Lock.LockPaths) == 0 {
		c.Lock.LockPaths = defaultLockPaths()
	}
	if len(c.Lock.ProcessNames) == 0 {
		c.Lock.ProcessNames = defaultProcessNames()
	}
	names := make([]string, 0, len(c.Lock.ProcessNames))
	for _, name := range c.Lock.ProcessNames {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	c.Lock.ProcessNames = names
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
