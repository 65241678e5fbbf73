package preflight

import (
	"context"
	"errors"
	"time"

	"upkeep/internal/config"
)

// Fatal guard failures. Any of these aborts the run before the first
// mutating action.
var (
	ErrPrivilege         = errors.New("administrative privilege required")
	ErrConnectivity      = errors.New("no network connectivity")
	ErrInsufficientSpace = errors.New("insufficient free space")
)

// Result reports the outcome of a single preflight check. Err carries the
// fatal sentinel when the check failed.
type Result struct {
	Name   string
	Passed bool
	Detail string
	Err    error
}

// RunAll executes every guard for the given config. All guards are
// observation only; none has side effects.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	perAttempt := time.Duration(cfg.Guards.ProbeTimeoutSeconds) * time.Second
	return []Result{
		CheckPrivilege(),
		CheckConnectivity(ctx, cfg.Guards.ProbeTargets, perAttempt),
		CheckFreeSpace(cfg.Guards.FreeSpacePath, cfg.Guards.MinFreeMB),
	}
}

// FirstError returns the error of the first failed check, or nil when all
// passed.
func FirstError(results []Result) error {
	for _, result := range results {
		if !result.Passed {
			return result.Err
		}
	}
	return nil
}
