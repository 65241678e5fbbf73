// Package flatpak wraps the optional Flatpak application manager. Presence
// is detected at runtime; absence is an informational skip for the pipeline,
// never a warning.
package flatpak

import (
	"context"
	"strings"

	"upkeep/internal/services"
)

const (
	component  = "flatpak"
	binaryName = "flatpak"
)

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

// Client drives flatpak update operations.
type Client struct {
	runner    services.CommandRunner
	available func() bool
}

// New constructs a flatpak client.
func New(opts ...Option) *Client {
	client := &Client{
		runner:    services.NewRunner(),
		available: func() bool { return services.Available(binaryName) },
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Present reports whether the flatpak binary is installed.
func (c *Client) Present() bool {
	return c.available()
}

// ListUpdates returns the application IDs with updates available.
func (c *Client) ListUpdates(ctx context.Context) ([]string, error) {
	result, err := c.runner.Run(ctx, services.Command{
		Name: binaryName,
		Args: []string{"remote-ls", "--updates", "--columns=application"},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, component, "list updates", "", err)
	}
	var apps []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			apps = append(apps, trimmed)
		}
	}
	return apps, nil
}

// ApplyUpdates updates all installed applications and runtimes.
func (c *Client) ApplyUpdates(ctx context.Context) error {
	_, err := c.runner.Run(ctx, services.Command{
		Name: binaryName,
		Args: []string{"update", "--noninteractive", "-y"},
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, component, "apply updates", "", err)
	}
	return nil
}
