package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateUpdates(); err != nil {
		return err
	}
	if err := c.validateGuards(); err != nil {
		return err
	}
	if err := c.validateLock(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateUpdates() error {
	if c.Updates.JournalRetentionDays < 0 {
		return errors.New("updates.journal_retention_days must be >= 0")
	}
	if c.Updates.AptLockTimeout < 0 {
		return errors.New("updates.apt_lock_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateGuards() error {
	if c.Guards.MinFreeMB < 0 {
		return errors.New("guards.min_free_mb must be >= 0")
	}
	if c.Guards.ProbeTimeoutSeconds <= 0 {
		return errors.New("guards.probe_timeout_seconds must be positive")
	}
	if len(c.Guards.ProbeTargets) == 0 {
		return errors.New("guards.probe_targets must include at least one host:port target")
	}
	for _, target := range c.Guards.ProbeTargets {
		if _, _, err := net.SplitHostPort(target); err != nil {
			return fmt.Errorf("guards.probe_targets entry %q must be host:port: %w", target, err)
		}
	}
	return nil
}

func (c *Config) validateLock() error {
	if c.Lock.WaitTimeout < 0 {
		return errors.New("lock.wait_timeout must be >= 0")
	}
	if c.Lock.PollInterval <= 0 {
		return errors.New("lock.poll_interval must be positive")
	}
	if len(c.Lock.ProcessNames) == 0 {
		return errors.New("lock.process_names must include at least one process name")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
