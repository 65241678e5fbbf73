package orchestrator

import (
	"context"

	"upkeep/internal/backup"
	"upkeep/internal/config"
	"upkeep/internal/notify"
	"upkeep/internal/preflight"
	"upkeep/internal/snapshot"
)

// Option replaces a default collaborator, primarily for tests.
type Option func(*Orchestrator)

// WithInstanceLock overrides the single-instance lock.
func WithInstanceLock(lock instanceLock) Option {
	return func(o *Orchestrator) {
		if lock != nil {
			o.lock = lock
		}
	}
}

// WithGuards overrides the preflight check runner.
func WithGuards(guards func(ctx context.Context, cfg *config.Config) []preflight.Result) Option {
	return func(o *Orchestrator) {
		if guards != nil {
			o.guards = guards
		}
	}
}

// WithWaiter overrides the package-database access waiter.
func WithWaiter(waiter accessWaiter) Option {
	return func(o *Orchestrator) {
		if waiter != nil {
			o.waiter = waiter
		}
	}
}

// WithQuerier overrides the installed-package querier used for snapshots.
func WithQuerier(querier snapshot.Querier) Option {
	return func(o *Orchestrator) {
		if querier != nil {
			o.querier = querier
		}
	}
}

// WithManifestSource overrides the backup manifest source.
func WithManifestSource(source backup.ManifestSource) Option {
	return func(o *Orchestrator) {
		if source != nil {
			o.manifests = source
		}
	}
}

// WithPipeline overrides the update pipeline.
func WithPipeline(pipeline updatePipeline) Option {
	return func(o *Orchestrator) {
		if pipeline != nil {
			o.pipeline = pipeline
		}
	}
}

// WithDecider overrides the restart decider.
func WithDecider(decider restartDecider) Option {
	return func(o *Orchestrator) {
		if decider != nil {
			o.decider = decider
		}
	}
}

// WithRemediator overrides the abnormal-termination repair client.
func WithRemediator(repair remediator) Option {
	return func(o *Orchestrator) {
		if repair != nil {
			o.repair = repair
		}
	}
}

// WithHistory attaches a run-history store. Without one the run is not
// recorded.
func WithHistory(store history) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notify.Service) Option {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}
