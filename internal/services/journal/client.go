// Package journal wraps journalctl's vacuum operation for log retention.
// The tool is optional; absence skips the step.
package journal

import (
	"context"
	"strconv"

	"upkeep/internal/services"
)

const (
	component  = "journal"
	binaryName = "journalctl"
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

// Client vacuums old systemd journal entries.
type Client struct {
	runner    services.CommandRunner
	available func() bool
}

// New constructs a journal client.
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

// Present reports whether journalctl is installed.
func (c *Client) Present() bool {
	return c.available()
}

// Vacuum removes journal entries older than the given number of days.
func (c *Client) Vacuum(ctx context.Context, olderThanDays int) error {
	if olderThanDays <= 0 {
		return services.Wrap(services.ErrConfiguration, component, "vacuum", "retention days must be positive", nil)
	}
	_, err := c.runner.Run(ctx, services.Command{
		Name: binaryName,
		Args: []string{"--vacuum-time=" + strconv.Itoa(olderThanDays) + "d"},
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, component, "vacuum", "", err)
	}
	return nil
}
