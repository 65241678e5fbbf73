package apt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"upkeep/internal/services"
	"upkeep/internal/snapshot"
)

const component = "apt"

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.CommandRunner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithLockTimeout sets apt's own DPkg::Lock::Timeout in seconds. This is a
// short sub-timeout covering races after the orchestrator's waiter has
// already seen the database free; the waiter owns the long wait.
func WithLockTimeout(seconds int) Option {
	return func(c *Client) {
		if seconds >= 0 {
			c.lockTimeout = seconds
		}
	}
}

// Client drives apt-get, dpkg, dpkg-query, and apt-mark.
type Client struct {
	runner      services.CommandRunner
	lockTimeout int
}

// New constructs an apt client.
func New(opts ...Option) *Client {
	client := &Client{
		runner:      services.NewRunner(),
		lockTimeout: 60,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// aptGet invokes apt-get non-interactively with the dpkg conffile-keep
// options, so unattended runs never stall on a conffile prompt.
func (c *Client) aptGet(ctx context.Context, args ...string) (services.Result, error) {
	full := []string{
		"-o", "DPkg::Lock::Timeout=" + strconv.Itoa(c.lockTimeout),
		"-o", "Dpkg::Options::=--force-confdef",
		"-o", "Dpkg::Options::=--force-confold",
	}
	full = append(full, args...)
	return c.runner.Run(ctx, services.Command{
		Name: "apt-get",
		Args: full,
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
}

// RefreshIndex updates the package index. This is the one pipeline step whose
// failure is fatal: nothing downstream is meaningful against a stale index.
func (c *Client) RefreshIndex(ctx context.Context) error {
	if _, err := c.aptGet(ctx, "update"); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "refresh index", "", err)
	}
	return nil
}

// UpgradeConservative applies upgrades that change no dependency edges.
func (c *Client) UpgradeConservative(ctx context.Context) error {
	if _, err := c.aptGet(ctx, "-y", "upgrade"); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "conservative upgrade", "", err)
	}
	return nil
}

// UpgradeFull applies a full dependency-resolving upgrade.
func (c *Client) UpgradeFull(ctx context.Context) error {
	if _, err := c.aptGet(ctx, "-y", "dist-upgrade"); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "full upgrade", "", err)
	}
	return nil
}

// Pending is one upgrade a simulated pass would apply.
type Pending struct {
	Name      string
	Current   string
	Candidate string
}

// SimulateUpgrade lists the upgrades a full pass would apply without
// mutating anything.
func (c *Client) SimulateUpgrade(ctx context.Context) ([]Pending, error) {
	result, err := c.aptGet(ctx, "-s", "dist-upgrade")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "simulate upgrade", "", err)
	}
	return parseSimulation(result.Stdout), nil
}

// parseSimulation extracts "Inst" lines from apt-get -s output. The format is
//
//	Inst name [current] (candidate archive [arch])
//
// where the bracketed current version is missing for new installs.
func parseSimulation(output string) []Pending {
	var pending []Pending
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "Inst" {
			continue
		}
		entry := Pending{Name: fields[1]}
		rest := fields[2:]
		if len(rest) > 0 && strings.HasPrefix(rest[0], "[") {
			entry.Current = strings.Trim(rest[0], "[]")
			rest = rest[1:]
		}
		if len(rest) > 0 && strings.HasPrefix(rest[0], "(") {
			entry.Candidate = strings.TrimPrefix(rest[0], "(")
		}
		pending = append(pending, entry)
	}
	return pending
}

// AutoRemove purges packages no longer required by anything installed.
func (c *Client) AutoRemove(ctx context.Context) error {
	if _, err := c.aptGet(ctx, "-y", "autoremove", "--purge"); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "autoremove", "", err)
	}
	return nil
}

// AutoClean drops cached package archives that can no longer be downloaded.
func (c *Client) AutoClean(ctx context.Context) error {
	if _, err := c.aptGet(ctx, "autoclean"); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "autoclean", "", err)
	}
	return nil
}

// Install installs a single package.
func (c *Client) Install(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return services.Wrap(services.ErrConfiguration, component, "install", "package name required", nil)
	}
	if _, err := c.aptGet(ctx, "-y", "install", name); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "install", name, err)
	}
	return nil
}

// ConfigurePending finishes half-configured package installations. Used as
// the one best-effort repair after an abnormal termination.
func (c *Client) ConfigurePending(ctx context.Context) error {
	_, err := c.runner.Run(ctx, services.Command{
		Name: "dpkg",
		Args: []string{"--configure", "-a"},
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, component, "configure pending", "", err)
	}
	return nil
}

// QueryInstalled returns the full installed set from the package database.
func (c *Client) QueryInstalled(ctx context.Context) ([]snapshot.Package, error) {
	result, err := c.runner.Run(ctx, services.Command{
		Name: "dpkg-query",
		Args: []string{"-W", "-f", "${Package}\t${Version}\n"},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "query installed", "", err)
	}
	return parseInstalled(result.Stdout), nil
}

func parseInstalled(output string) []snapshot.Package {
	var pkgs []snapshot.Package
	for _, line := range strings.Split(output, "\n") {
		name, version, ok := strings.Cut(strings.TrimSpace(line), "\t")
		if !ok || name == "" {
			continue
		}
		pkgs = append(pkgs, snapshot.Package{Name: name, Version: version})
	}
	return pkgs
}

// InstalledManifest returns the raw installed-package listing for backup.
func (c *Client) InstalledManifest(ctx context.Context) (string, error) {
	result, err := c.runner.Run(ctx, services.Command{
		Name: "dpkg-query",
		Args: []string{"-W"},
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, component, "installed manifest", "", err)
	}
	return result.Stdout, nil
}

// ManualManifest returns the manually-installed package listing for backup.
// Restoring a host only needs this list; the rest reinstalls as dependencies.
func (c *Client) ManualManifest(ctx context.Context) (string, error) {
	result, err := c.runner.Run(ctx, services.Command{
		Name: "apt-mark",
		Args: []string{"showmanual"},
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, component, "manual manifest", "", err)
	}
	return result.Stdout, nil
}

// DescribePending renders one pending upgrade for log output.
func DescribePending(p Pending) string {
	if p.Current == "" {
		return fmt.Sprintf("%s (new, %s)", p.Name, p.Candidate)
	}
	return fmt.Sprintf("%s %s -> %s", p.Name, p.Current, p.Candidate)
}
