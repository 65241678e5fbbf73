package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Updates contains the knobs for the update pipeline itself.
type Updates struct {
	SkipFlatpak          bool `toml:"skip_flatpak"`
	SecurityOnly         bool `toml:"security_only"`
	BackupEtc            bool `toml:"backup_etc"`
	JournalRetentionDays int  `toml:"journal_retention_days"`
	// AptLockTimeout is apt's own DPkg::Lock::Timeout in seconds; it is
	// distinct from the orchestrator's waiter configured in [lock].
	AptLockTimeout int `toml:"apt_lock_timeout"`
}

// Guards contains preflight check configuration.
type Guards struct {
	MinFreeMB           int      `toml:"min_free_mb"`
	FreeSpacePath       string   `toml:"free_space_path"`
	ProbeTargets        []string `toml:"probe_targets"`
	ProbeTimeoutSeconds int      `toml:"probe_timeout_seconds"`
}

// Lock contains configuration for the package-database access waiter.
type Lock struct {
	WaitTimeout  int      `toml:"wait_timeout"`
	PollInterval int      `toml:"poll_interval"`
	LockPaths    []string `toml:"lock_paths"`
	ProcessNames []string `toml:"process_names"`
}

// Paths contains directory and marker-file configuration.
type Paths struct {
	StateDir           string `toml:"state_dir"`
	BackupDir          string `toml:"backup_dir"`
	LogDir             string `toml:"log_dir"`
	EtcDir             string `toml:"etc_dir"`
	RebootRequiredPath string `toml:"reboot_required_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for upkeep.
//
// Configuration sections by subsystem:
//   - Updates: pipeline mode switches and apt's own lock sub-timeout
//   - Guards: preflight thresholds and connectivity probe targets
//   - Lock: package-database waiter timing, lock paths, process names
//   - Paths: state/backup/log directories and the reboot marker
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//
// DryRun is flag-only and never read from the file: a simulated pass is a
// per-invocation decision, not persistent machine state.
type Config struct {
	Updates       Updates       `toml:"updates"`
	Guards        Guards        `toml:"guards"`
	Lock          Lock          `toml:"lock"`
	Paths         Paths         `toml:"paths"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`

	DryRun bool `toml:"-"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("/etc/upkeep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	userPath, err := expandPath("~/.config/upkeep/config.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return userPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, backup, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.BackupDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
