package pkglock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"upkeep/internal/logging"
)

// ErrLockTimeout is the fatal failure when the package database stays
// contended past the configured wait.
var ErrLockTimeout = errors.New("timed out waiting for package database")

// Status describes one probe of the contention signals.
type Status struct {
	Busy   bool
	Detail string
}

// Probe inspects the two contention signals: running package-manager
// processes and held lock files.
type Probe interface {
	Check(ctx context.Context) Status
}

// Waiter polls the package database for exclusive access. It only ever
// observes: it never clears a lock and never kills a holder.
type Waiter struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewWaiter constructs a waiter polling probe at interval until free or
// until timeout elapses. A zero timeout allows exactly one probe.
func NewWaiter(probe Probe, interval, timeout time.Duration, logger *slog.Logger) *Waiter {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Waiter{
		probe:    probe,
		interval: interval,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "waiter"),
	}
}

// Wait blocks until both contention signals are clear, returning the time
// spent waiting. It fails with ErrLockTimeout once the accumulated wait
// reaches the timeout while still busy, and never earlier. Context
// cancellation between polls is honored.
func (w *Waiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		status := w.probe.Check(ctx)
		if !status.Busy {
			return time.Since(start), nil
		}

		elapsed := time.Since(start)
		if elapsed >= w.timeout {
			return elapsed, fmt.Errorf("%w after %s: %s", ErrLockTimeout, elapsed.Round(time.Second), status.Detail)
		}

		w.logger.Info("package database busy, waiting",
			logging.String("holder", status.Detail),
			logging.Duration("waited", elapsed.Round(time.Second)),
			logging.Duration("timeout", w.timeout),
		)

		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-ticker.C:
		}
	}
}
