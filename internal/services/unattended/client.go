// Package unattended wraps the unattended-upgrade tool used for
// security-only runs, installing it on demand when absent.
package unattended

import (
	"context"

	"upkeep/internal/services"
)

const (
	component = "unattended-upgrades"

	// binaryName is the tool; packageName is what apt installs to get it.
	binaryName  = "unattended-upgrade"
	packageName = "unattended-upgrades"
)

// Installer installs a package by name, satisfied by the apt client.
type Installer interface {
	Install(ctx context.Context, name string) error
}

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

// WithAvailabilityProbe overrides binary detection (primarily for tests).
func WithAvailabilityProbe(probe func() bool) Option {
	return func(c *Client) {
		if probe != nil {
			c.available = probe
		}
	}
}

// Client runs security-only upgrades via unattended-upgrade.
type Client struct {
	runner    services.CommandRunner
	installer Installer
	available func() bool
}

// New constructs an unattended-upgrades client.
func New(installer Installer, opts ...Option) *Client {
	client := &Client{
		runner:    services.NewRunner(),
		installer: installer,
		available: func() bool { return services.Available(binaryName) },
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Present reports whether the unattended-upgrade binary is installed.
func (c *Client) Present() bool {
	return c.available()
}

// EnsureInstalled installs the unattended-upgrades package when the tool is
// missing.
func (c *Client) EnsureInstalled(ctx context.Context) error {
	if c.Present() {
		return nil
	}
	if c.installer == nil {
		return services.Wrap(services.ErrNotPresent, component, "ensure installed", "no installer available", nil)
	}
	if err := c.installer.Install(ctx, packageName); err != nil {
		return services.Wrap(services.ErrExternalTool, component, "ensure installed", "", err)
	}
	return nil
}

// Run applies pending security upgrades.
func (c *Client) Run(ctx context.Context) error {
	_, err := c.runner.Run(ctx, services.Command{
		Name: binaryName,
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, component, "run", "", err)
	}
	return nil
}
