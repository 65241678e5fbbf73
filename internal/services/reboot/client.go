// Package reboot wraps the system restart service and the distribution's
// reboot-required marker file.
package reboot

import (
	"context"
	"os"

	"upkeep/internal/services"
)

const component = "reboot"

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

// Client triggers restarts and inspects the reboot-required marker.
type Client struct {
	runner     services.CommandRunner
	markerPath string
}

// New constructs a reboot client watching the given marker path.
func New(markerPath string, opts ...Option) *Client {
	client := &Client{
		runner:     services.NewRunner(),
		markerPath: markerPath,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Reboot asks systemd to restart the machine.
func (c *Client) Reboot(ctx context.Context) error {
	_, err := c.runner.Run(ctx, services.Command{
		Name: "systemctl",
		Args: []string{"reboot"},
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, component, "reboot", "", err)
	}
	return nil
}

// MarkerPresent reports whether the system-level reboot-required marker
// exists. This is independent of upkeep's own kernel-change classification.
func (c *Client) MarkerPresent() bool {
	if c.markerPath == "" {
		return false
	}
	info, err := os.Stat(c.markerPath)
	return err == nil && !info.IsDir()
}
