// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"upkeep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.EtcDir = filepath.Join(base, "etc")
	cfgVal.Paths.RebootRequiredPath = filepath.Join(base, "reboot-required")
	cfgVal.Lock.WaitTimeout = 1
	cfgVal.Lock.PollInterval = 1
	cfgVal.Guards.ProbeTargets = nil

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDryRun marks the test config as a simulated pass.
func WithDryRun() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DryRun = true
	}
}

// WithSecurityOnly restricts the test config to security upgrades.
func WithSecurityOnly() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Updates.SecurityOnly = true
	}
}

// WithBackupEtc enables the /etc archive on the test config.
func WithBackupEtc() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Updates.BackupEtc = true
	}
}
