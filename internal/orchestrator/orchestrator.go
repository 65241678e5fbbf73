package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"upkeep/internal/backup"
	"upkeep/internal/config"
	"upkeep/internal/executor"
	"upkeep/internal/logging"
	"upkeep/internal/notify"
	"upkeep/internal/pkglock"
	"upkeep/internal/preflight"
	"upkeep/internal/restart"
	"upkeep/internal/runs"
	"upkeep/internal/services/apt"
	"upkeep/internal/services/flatpak"
	"upkeep/internal/services/journal"
	"upkeep/internal/services/reboot"
	"upkeep/internal/services/unattended"
	"upkeep/internal/snapshot"
)

// ErrAlreadyRunning indicates another maintenance run holds the instance
// lock. Concurrent runs fail fast rather than queue.
var ErrAlreadyRunning = errors.New("another upkeep run is already in progress")

// instanceLock is the single-instance guard. *flock.Flock satisfies it.
type instanceLock interface {
	TryLock() (bool, error)
	Unlock() error
}

type accessWaiter interface {
	Wait(ctx context.Context) (time.Duration, error)
}

type updatePipeline interface {
	Run(ctx context.Context, mode executor.Mode) (executor.Outcome, error)
}

type restartDecider interface {
	Decide(ctx context.Context, changes snapshot.ChangeSet, dryRun bool) (restart.State, error)
}

// remediator finishes half-configured packages after an abnormal stop.
type remediator interface {
	ConfigurePending(ctx context.Context) error
}

type history interface {
	Begin(ctx context.Context, started time.Time, dryRun, securityOnly bool) (string, error)
	Finish(ctx context.Context, rec runs.Record) error
}

// Orchestrator drives one maintenance run through the full pipeline:
// guards, package-database wait, pre snapshot, backup, update execution,
// post snapshot, diff, and the restart decision.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	lock      instanceLock
	guards    func(ctx context.Context, cfg *config.Config) []preflight.Result
	waiter    accessWaiter
	querier   snapshot.Querier
	manifests backup.ManifestSource
	pipeline  updatePipeline
	decider   restartDecider
	repair    remediator
	store     history
	notifier  notify.Service

	now func() time.Time
}

// New wires an orchestrator from the configuration. Collaborators default
// to the real system clients; options replace them in tests.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	aptClient := apt.New(apt.WithLockTimeout(cfg.Updates.AptLockTimeout))
	rebootClient := reboot.New(cfg.Paths.RebootRequiredPath)

	o := &Orchestrator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
		lock:   flock.New(filepath.Join(cfg.Paths.StateDir, "upkeep.lock")),
		guards: preflight.RunAll,
		waiter: pkglock.NewWaiter(
			pkglock.NewHostProbe(cfg.Lock.LockPaths, cfg.Lock.ProcessNames),
			time.Duration(cfg.Lock.PollInterval)*time.Second,
			time.Duration(cfg.Lock.WaitTimeout)*time.Second,
			logger,
		),
		querier:   aptClient,
		manifests: aptClient,
		pipeline: executor.New(
			aptClient,
			unattended.New(aptClient),
			flatpak.New(),
			journal.New(),
			logger,
		),
		decider:  restart.NewDecider(restart.NewTerminalInteraction(), rebootClient, logger),
		repair:   aptClient,
		notifier: notify.NewService(cfg),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline once. The returned Result always carries
// whatever was accomplished; the error is non-nil only for fatal aborts.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	res := Result{StartedAt: o.now()}

	if err := os.MkdirAll(o.cfg.Paths.StateDir, 0o755); err != nil {
		res.fail(err)
		return res, err
	}
	acquired, err := o.lock.TryLock()
	if err != nil {
		err = errors.Join(ErrAlreadyRunning, err)
		res.fail(err)
		return res, err
	}
	if !acquired {
		res.fail(ErrAlreadyRunning)
		return res, ErrAlreadyRunning
	}
	defer func() { _ = o.lock.Unlock() }()

	o.beginRecord(&res)
	defer o.finishRecord(&res)

	o.logger.Info("maintenance run starting",
		logging.String(logging.FieldRunID, res.RunID),
		logging.Bool("dry_run", o.cfg.DryRun),
		logging.Bool("security_only", o.cfg.Updates.SecurityOnly))

	res.Guards = o.guards(ctx, o.cfg)
	for _, guard := range res.Guards {
		o.logger.Info("preflight check",
			logging.String("check", guard.Name),
			logging.Bool("passed", guard.Passed),
			logging.String("detail", guard.Detail))
	}
	if err := preflight.FirstError(res.Guards); err != nil {
		res.fail(err)
		return res, err
	}

	waited, err := o.waiter.Wait(ctx)
	res.WaitDuration = waited
	if err != nil {
		res.fail(err)
		return res, err
	}

	pre, err := snapshot.Capture(ctx, o.querier)
	preOK := err == nil
	if err != nil {
		o.warn(&res, "pre snapshot failed, change report will be empty", err)
	}

	o.runBackups(ctx, &res)

	outcome, err := o.pipeline.Run(ctx, executor.Mode{
		DryRun:               o.cfg.DryRun,
		SecurityOnly:         o.cfg.Updates.SecurityOnly,
		SkipApps:             o.cfg.Updates.SkipFlatpak,
		JournalRetentionDays: o.cfg.Updates.JournalRetentionDays,
	})
	res.Outcome = outcome
	res.Warnings += outcome.Warnings()
	if err != nil {
		o.remediate(&res)
		res.fail(err)
		return res, err
	}
	if ctx.Err() != nil {
		o.remediate(&res)
		res.fail(ctx.Err())
		return res, ctx.Err()
	}

	// Diffing against a missing snapshot would report every installed
	// package as new, so either capture failing degrades to no changes.
	if !o.cfg.DryRun && preOK {
		post, err := snapshot.Capture(ctx, o.querier)
		if err != nil {
			o.warn(&res, "post snapshot failed, change report will be empty", err)
		} else {
			res.Changes = snapshot.Diff(pre, post)
		}
	}
	res.KernelChanged = res.Changes.KernelChanged()
	installed, removed, upgraded := res.Changes.Counts()
	o.logger.Info("package changes",
		logging.Int("installed", installed),
		logging.Int("removed", removed),
		logging.Int("upgraded", upgraded),
		logging.Bool("kernel", res.KernelChanged))

	state, err := o.decider.Decide(ctx, res.Changes, o.cfg.DryRun)
	res.RestartState = state
	if err != nil {
		o.warn(&res, "restart failed", err)
	}

	o.logger.Info("maintenance run finished",
		logging.String("restart", string(state)),
		logging.Int("warnings", res.Warnings),
		logging.Duration("elapsed", o.now().Sub(res.StartedAt)))
	return res, nil
}

func (o *Orchestrator) runBackups(ctx context.Context, res *Result) {
	if o.cfg.DryRun {
		o.logger.Info("dry run, skipping backups")
		return
	}

	manager := backup.NewManager(o.cfg.Paths.BackupDir, res.StartedAt, o.manifests, o.logger)
	if artifact, err := manager.SaveFullManifest(ctx); err != nil {
		o.warn(res, "package manifest backup failed", err)
	} else {
		res.Artifacts = append(res.Artifacts, artifact)
	}
	if artifact, err := manager.SaveManualManifest(ctx); err != nil {
		o.warn(res, "manual manifest backup failed", err)
	} else {
		res.Artifacts = append(res.Artifacts, artifact)
	}
	if o.cfg.Updates.BackupEtc {
		if artifact, err := manager.ArchiveEtc(ctx, o.cfg.Paths.EtcDir); err != nil {
			o.warn(res, "etc archive failed", err)
		} else {
			res.Artifacts = append(res.Artifacts, artifact)
		}
	}
}

// remediate makes one best-effort pass to finish half-configured packages
// before the original error propagates. Never in dry-run: nothing was
// touched.
func (o *Orchestrator) remediate(res *Result) {
	if o.cfg.DryRun {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	o.logger.Warn("run interrupted, finishing half-configured packages")
	if err := o.repair.ConfigurePending(ctx); err != nil {
		o.warn(res, "package configuration repair failed", err)
	}
}

func (o *Orchestrator) warn(res *Result, message string, err error) {
	res.Warnings++
	o.logger.Warn(message, logging.Error(err))
}

func (o *Orchestrator) beginRecord(res *Result) {
	if o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := o.store.Begin(ctx, res.StartedAt, o.cfg.DryRun, o.cfg.Updates.SecurityOnly)
	if err != nil {
		o.warn(res, "recording run start failed", err)
		return
	}
	res.RunID = id
}

// finishRecord persists the final row and sends notifications. Both use a
// fresh context so a canceled run still leaves its audit trail.
func (o *Orchestrator) finishRecord(res *Result) {
	res.FinishedAt = o.now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if o.store != nil && res.RunID != "" {
		rec := runs.Record{
			ID:              res.RunID,
			FinishedAt:      res.FinishedAt,
			ChangedPackages: len(res.Changes),
			KernelChanged:   res.KernelChanged,
			RestartState:    string(res.RestartState),
			Warnings:        res.Warnings,
		}
		if res.Err != nil {
			rec.FatalError = res.Err.Error()
		}
		if err := o.store.Finish(ctx, rec); err != nil {
			o.logger.Warn("recording run result failed", logging.Error(err))
		}
	}

	o.sendNotifications(ctx, res)
}

func (o *Orchestrator) sendNotifications(ctx context.Context, res *Result) {
	if o.notifier == nil {
		return
	}
	if res.Err != nil {
		if err := o.notifier.NotifyRunFailed(ctx, res.Err); err != nil {
			o.logger.Warn("failure notification failed", logging.Error(err))
		}
		return
	}
	if err := o.notifier.NotifyRunCompleted(ctx, len(res.Changes), res.Warnings, res.FinishedAt.Sub(res.StartedAt)); err != nil {
		o.logger.Warn("completion notification failed", logging.Error(err))
	}
	if res.KernelChanged && res.RestartState != restart.Rebooting {
		host, _ := os.Hostname()
		if err := o.notifier.NotifyRebootRequired(ctx, host); err != nil {
			o.logger.Warn("reboot notification failed", logging.Error(err))
		}
	}
}
