package restart

import (
	"context"
	"log/slog"

	"upkeep/internal/logging"
	"upkeep/internal/snapshot"
)

// State is the terminal state of the restart decision for one run.
type State string

const (
	// NoKernelChange means the run touched no kernel packages; nothing to
	// decide.
	NoKernelChange State = "no-kernel-change"
	// KernelChangedNonInteractive means a kernel package changed but no
	// operator is present to approve a restart.
	KernelChangedNonInteractive State = "kernel-changed-noninteractive"
	// KernelChangedAwaitingInput is the transient state while the operator
	// is being prompted; it never outlives Decide.
	KernelChangedAwaitingInput State = "kernel-changed-awaiting-input"
	// Rebooting means the operator approved and the restart was issued.
	Rebooting State = "rebooting"
	// RebootDeclined means the operator was asked and said no (or nothing).
	RebootDeclined State = "reboot-declined"
)

// Interaction asks the operator whether to restart now. Implementations
// must default to declining on any ambiguity.
type Interaction interface {
	// Interactive reports whether an operator can actually be asked.
	Interactive() bool
	// ConfirmReboot prompts and returns true only on an explicit yes.
	ConfirmReboot() (bool, error)
}

// Rebooter issues the actual restart.
type Rebooter interface {
	Reboot(ctx context.Context) error
	MarkerPresent() bool
}

// Decider maps a run's change set to a restart state, prompting the
// operator when one is present. It runs exactly once per run.
type Decider struct {
	interaction Interaction
	rebooter    Rebooter
	logger      *slog.Logger
}

// NewDecider constructs a decider over the given interaction and rebooter.
func NewDecider(interaction Interaction, rebooter Rebooter, logger *slog.Logger) *Decider {
	return &Decider{
		interaction: interaction,
		rebooter:    rebooter,
		logger:      logging.NewComponentLogger(logger, "restart"),
	}
}

// Decide resolves the restart state for the given changes. dryRun
// short-circuits to NoKernelChange since nothing was actually changed.
// The distribution's reboot-required marker is independent of the kernel
// classification and is surfaced as its own warning.
func (d *Decider) Decide(ctx context.Context, changes snapshot.ChangeSet, dryRun bool) (State, error) {
	// The marker is pre-existing system state, so it is reported even in
	// dry-run, which changes nothing itself.
	if d.rebooter.MarkerPresent() {
		d.logger.Warn("system reports a pending reboot requirement")
	}

	if dryRun || !changes.KernelChanged() {
		d.logger.Info("no kernel change, restart not needed")
		return NoKernelChange, nil
	}

	if !d.interaction.Interactive() {
		d.logger.Warn("kernel updated, restart the system manually to activate it")
		return KernelChangedNonInteractive, nil
	}

	d.logger.Info("kernel updated, asking whether to restart",
		logging.String("state", string(KernelChangedAwaitingInput)))
	confirmed, err := d.interaction.ConfirmReboot()
	if err != nil {
		d.logger.Warn("restart prompt failed, not rebooting", logging.Error(err))
		return RebootDeclined, nil
	}
	if !confirmed {
		d.logger.Warn("restart declined, reboot manually to activate the new kernel")
		return RebootDeclined, nil
	}

	d.logger.Info("restarting the system now")
	if err := d.rebooter.Reboot(ctx); err != nil {
		return RebootDeclined, err
	}
	return Rebooting, nil
}
