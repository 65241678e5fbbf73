package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"upkeep/internal/logging"
	"upkeep/internal/services/apt"
)

// PackageManager is the slice of the apt client the executor drives.
type PackageManager interface {
	RefreshIndex(ctx context.Context) error
	SimulateUpgrade(ctx context.Context) ([]apt.Pending, error)
	UpgradeConservative(ctx context.Context) error
	UpgradeFull(ctx context.Context) error
	AutoRemove(ctx context.Context) error
	AutoClean(ctx context.Context) error
}

// SecurityUpgrader runs security-only upgrades, installing itself on demand.
type SecurityUpgrader interface {
	EnsureInstalled(ctx context.Context) error
	Run(ctx context.Context) error
}

// AppManager is the optional sandboxed-application manager.
type AppManager interface {
	Present() bool
	ListUpdates(ctx context.Context) ([]string, error)
	ApplyUpdates(ctx context.Context) error
}

// JournalService vacuums old log entries when present.
type JournalService interface {
	Present() bool
	Vacuum(ctx context.Context, olderThanDays int) error
}

// Mode selects which pipeline branch a run takes. DryRun and SecurityOnly
// are independent; when both are set the dry-run branch wins because it
// promises zero mutation.
type Mode struct {
	DryRun               bool
	SecurityOnly         bool
	SkipApps             bool
	JournalRetentionDays int
}

// Executor runs the update pipeline: index refresh, the mode-selected
// upgrade strategy, cleanup, app updates, and journal retention. Only the
// index refresh is fatal; every later sub-step is independently attempted so
// one failure never blocks the remaining best-effort work.
type Executor struct {
	packages PackageManager
	security SecurityUpgrader
	apps     AppManager
	journal  JournalService
	logger   *slog.Logger
}

// New constructs an executor over the given collaborators.
func New(packages PackageManager, security SecurityUpgrader, apps AppManager, journal JournalService, logger *slog.Logger) *Executor {
	return &Executor{
		packages: packages,
		security: security,
		apps:     apps,
		journal:  journal,
		logger:   logging.NewComponentLogger(logger, "executor"),
	}
}

// Run executes the pipeline for the given mode. The returned error is
// non-nil only for the fatal index refresh failure; the Outcome carries the
// per-step record either way.
func (e *Executor) Run(ctx context.Context, mode Mode) (Outcome, error) {
	var outcome Outcome

	if err := e.packages.RefreshIndex(ctx); err != nil {
		outcome.record(e.logger, StepRefresh, StatusFailed, "", err)
		return outcome, fmt.Errorf("refresh package index: %w", err)
	}
	outcome.record(e.logger, StepRefresh, StatusOK, "", nil)

	switch {
	case mode.DryRun:
		e.runSimulation(ctx, &outcome)
	case mode.SecurityOnly:
		e.runSecurityOnly(ctx, &outcome)
	default:
		e.runFullUpgrade(ctx, &outcome)
	}

	if mode.DryRun {
		outcome.record(e.logger, StepAutoRemove, StatusSkipped, "dry-run", nil)
		outcome.record(e.logger, StepAutoClean, StatusSkipped, "dry-run", nil)
	} else {
		if err := e.packages.AutoRemove(ctx); err != nil {
			outcome.record(e.logger, StepAutoRemove, StatusWarned, "", err)
		} else {
			outcome.record(e.logger, StepAutoRemove, StatusOK, "", nil)
		}
		if err := e.packages.AutoClean(ctx); err != nil {
			outcome.record(e.logger, StepAutoClean, StatusWarned, "", err)
		} else {
			outcome.record(e.logger, StepAutoClean, StatusOK, "", nil)
		}
	}

	e.runAppUpdates(ctx, mode, &outcome)
	e.runJournalVacuum(ctx, mode, &outcome)

	return outcome, nil
}

func (e *Executor) runSimulation(ctx context.Context, outcome *Outcome) {
	pending, err := e.packages.SimulateUpgrade(ctx)
	if err != nil {
		outcome.record(e.logger, StepSimulate, StatusWarned, "", err)
		return
	}
	for _, p := range pending {
		e.logger.Info("pending upgrade", logging.String(logging.FieldPackage, apt.DescribePending(p)))
	}
	outcome.record(e.logger, StepSimulate, StatusOK, strconv.Itoa(len(pending))+" upgrades pending", nil)
}

func (e *Executor) runSecurityOnly(ctx context.Context, outcome *Outcome) {
	if err := e.security.EnsureInstalled(ctx); err != nil {
		outcome.record(e.logger, StepSecurityUpgrade, StatusWarned, "install tool", err)
		return
	}
	if err := e.security.Run(ctx); err != nil {
		outcome.record(e.logger, StepSecurityUpgrade, StatusWarned, "", err)
		return
	}
	outcome.record(e.logger, StepSecurityUpgrade, StatusOK, "", nil)
}

func (e *Executor) runFullUpgrade(ctx context.Context, outcome *Outcome) {
	if err := e.packages.UpgradeConservative(ctx); err != nil {
		outcome.record(e.logger, StepConservativeUpgrade, StatusWarned, "", err)
	} else {
		outcome.record(e.logger, StepConservativeUpgrade, StatusOK, "", nil)
	}
	if err := e.packages.UpgradeFull(ctx); err != nil {
		outcome.record(e.logger, StepFullUpgrade, StatusWarned, "", err)
	} else {
		outcome.record(e.logger, StepFullUpgrade, StatusOK, "", nil)
	}
}

func (e *Executor) runAppUpdates(ctx context.Context, mode Mode, outcome *Outcome) {
	if mode.SkipApps {
		outcome.record(e.logger, StepAppUpdates, StatusSkipped, "disabled", nil)
		return
	}
	if !e.apps.Present() {
		// Absence is an informational skip, never a warning.
		outcome.record(e.logger, StepAppUpdates, StatusSkipped, "flatpak not installed", nil)
		return
	}
	if mode.DryRun {
		updates, err := e.apps.ListUpdates(ctx)
		if err != nil {
			outcome.record(e.logger, StepAppUpdates, StatusWarned, "list updates", err)
			return
		}
		detail := strconv.Itoa(len(updates)) + " app updates pending"
		if len(updates) > 0 {
			detail += ": " + strings.Join(updates, ", ")
		}
		outcome.record(e.logger, StepAppUpdates, StatusOK, detail, nil)
		return
	}
	if err := e.apps.ApplyUpdates(ctx); err != nil {
		outcome.record(e.logger, StepAppUpdates, StatusWarned, "", err)
		return
	}
	outcome.record(e.logger, StepAppUpdates, StatusOK, "", nil)
}

func (e *Executor) runJournalVacuum(ctx context.Context, mode Mode, outcome *Outcome) {
	if mode.JournalRetentionDays <= 0 {
		outcome.record(e.logger, StepJournalVacuum, StatusSkipped, "retention disabled", nil)
		return
	}
	if mode.DryRun {
		outcome.record(e.logger, StepJournalVacuum, StatusSkipped, "dry-run", nil)
		return
	}
	if !e.journal.Present() {
		outcome.record(e.logger, StepJournalVacuum, StatusSkipped, "journalctl not installed", nil)
		return
	}
	if err := e.journal.Vacuum(ctx, mode.JournalRetentionDays); err != nil {
		outcome.record(e.logger, StepJournalVacuum, StatusWarned, "", err)
		return
	}
	outcome.record(e.logger, StepJournalVacuum, StatusOK,
		fmt.Sprintf("entries older than %dd removed", mode.JournalRetentionDays), nil)
}

func (o *Outcome) record(logger *slog.Logger, step Step, status StepStatus, detail string, err error) {
	o.Steps = append(o.Steps, StepResult{Step: step, Status: status, Detail: detail, Err: err})

	attrs := []logging.Attr{
		logging.String(logging.FieldStep, string(step)),
		logging.String("status", string(status)),
	}
	if detail != "" {
		attrs = append(attrs, logging.String("detail", detail))
	}
	switch status {
	case StatusFailed:
		attrs = append(attrs, logging.Error(err))
		logger.Error("step failed", logging.Args(attrs...)...)
	case StatusWarned:
		attrs = append(attrs, logging.Error(err))
		logger.Warn("step failed, continuing", logging.Args(attrs...)...)
	case StatusSkipped:
		logger.Info("step skipped", logging.Args(attrs...)...)
	default:
		logger.Info("step completed", logging.Args(attrs...)...)
	}
}
