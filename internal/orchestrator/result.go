package orchestrator

import (
	"time"

	"upkeep/internal/backup"
	"upkeep/internal/executor"
	"upkeep/internal/preflight"
	"upkeep/internal/restart"
	"upkeep/internal/snapshot"
)

// Result aggregates everything one maintenance run accomplished. It is
// filled in stage order as the pipeline advances and persisted at exit,
// so an aborted run still shows how far it got.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Guards       []preflight.Result
	WaitDuration time.Duration
	Artifacts    []backup.Artifact
	Outcome      executor.Outcome

	Changes       snapshot.ChangeSet
	KernelChanged bool
	RestartState  restart.State

	Warnings int
	Err      error
}

func (r *Result) fail(err error) {
	r.Err = err
}
