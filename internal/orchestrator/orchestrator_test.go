package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/executor"
	"upkeep/internal/logging"
	"upkeep/internal/preflight"
	"upkeep/internal/restart"
	"upkeep/internal/snapshot"
	"upkeep/internal/testsupport"
)

func testLogger() *slog.Logger {
	return logging.NewNop()
}

type fakeLock struct {
	acquired bool
	busy     bool
	unlocked int
}

func (f *fakeLock) TryLock() (bool, error) {
	if f.busy {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Unlock() error {
	f.unlocked++
	return nil
}

type fakeWaiter struct {
	waited time.Duration
	err    error
	calls  int
}

func (f *fakeWaiter) Wait(ctx context.Context) (time.Duration, error) {
	f.calls++
	return f.waited, f.err
}

type scriptedQuerier struct {
	snapshots [][]snapshot.Package
	errs      []error
	calls     int
}

func (q *scriptedQuerier) QueryInstalled(ctx context.Context) ([]snapshot.Package, error) {
	i := q.calls
	q.calls++
	if i >= len(q.snapshots) {
		return nil, errors.New("unexpected snapshot query")
	}
	var err error
	if i < len(q.errs) {
		err = q.errs[i]
	}
	return q.snapshots[i], err
}

type fakeManifests struct{}

func (fakeManifests) InstalledManifest(ctx context.Context) (string, error) {
	return "curl\t8.5.0-2\n", nil
}

func (fakeManifests) ManualManifest(ctx context.Context) (string, error) {
	return "curl\n", nil
}

type fakePipeline struct {
	outcome executor.Outcome
	err     error
	mode    executor.Mode
	calls   int
}

func (f *fakePipeline) Run(ctx context.Context, mode executor.Mode) (executor.Outcome, error) {
	f.calls++
	f.mode = mode
	return f.outcome, f.err
}

type fakeDecider struct {
	state   restart.State
	calls   int
	changes snapshot.ChangeSet
	dryRun  bool
}

func (f *fakeDecider) Decide(ctx context.Context, changes snapshot.ChangeSet, dryRun bool) (restart.State, error) {
	f.calls++
	f.changes = changes
	f.dryRun = dryRun
	if f.state == "" {
		return restart.NoKernelChange, nil
	}
	return f.state, nil
}

type fakeRepair struct {
	calls int
}

func (f *fakeRepair) ConfigurePending(ctx context.Context) error {
	f.calls++
	return nil
}

func passingGuards(ctx context.Context, cfg *config.Config) []preflight.Result {
	return []preflight.Result{{Name: "privilege", Passed: true}}
}

type testHarness struct {
	lock     *fakeLock
	waiter   *fakeWaiter
	querier  *scriptedQuerier
	pipeline *fakePipeline
	decider  *fakeDecider
	repair   *fakeRepair
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, h *testHarness) *Orchestrator {
	t.Helper()
	return New(cfg, testLogger(),
		WithInstanceLock(h.lock),
		WithGuards(passingGuards),
		WithWaiter(h.waiter),
		WithQuerier(h.querier),
		WithManifestSource(fakeManifests{}),
		WithPipeline(h.pipeline),
		WithDecider(h.decider),
		WithRemediator(h.repair),
	)
}

func defaultHarness() *testHarness {
	return &testHarness{
		lock:   &fakeLock{},
		waiter: &fakeWaiter{waited: 10 * time.Millisecond},
		querier: &scriptedQuerier{snapshots: [][]snapshot.Package{
			{{Name: "curl", Version: "8.5.0-2"}},
			{{Name: "curl", Version: "8.5.0-3"}},
		}},
		pipeline: &fakePipeline{},
		decider:  &fakeDecider{},
		repair:   &fakeRepair{},
	}
}

func TestRunHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	orch := newTestOrchestrator(t, cfg, h)

	res, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.pipeline.calls != 1 {
		t.Fatalf("pipeline calls = %d, want 1", h.pipeline.calls)
	}
	if len(res.Changes) != 1 || res.Changes[0].Name != "curl" {
		t.Fatalf("changes = %+v", res.Changes)
	}
	if res.KernelChanged {
		t.Error("curl upgrade flagged as kernel change")
	}
	if h.decider.calls != 1 {
		t.Fatalf("decider calls = %d, want 1", h.decider.calls)
	}
	if res.RestartState != restart.NoKernelChange {
		t.Errorf("restart state = %s", res.RestartState)
	}
	if len(res.Artifacts) != 2 {
		t.Errorf("artifacts = %+v, want full and manual manifests", res.Artifacts)
	}
	if h.lock.unlocked == 0 {
		t.Error("instance lock never released")
	}
	if h.repair.calls != 0 {
		t.Error("repair pass ran on a clean run")
	}
	if res.Err != nil {
		t.Errorf("result error = %v", res.Err)
	}
}

func TestRunFailsFastWhenLockBusy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	h.lock.busy = true
	orch := newTestOrchestrator(t, cfg, h)

	_, err := orch.Run(context.Background())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if h.waiter.calls != 0 || h.pipeline.calls != 0 {
		t.Fatal("pipeline advanced past a busy instance lock")
	}
}

func TestRunGuardFailureAbortsBeforeBackup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	orch := New(cfg, testLogger(),
		WithInstanceLock(h.lock),
		WithGuards(func(ctx context.Context, cfg *config.Config) []preflight.Result {
			return []preflight.Result{{
				Name:   "free-space",
				Passed: false,
				Err:    preflight.ErrInsufficientSpace,
			}}
		}),
		WithWaiter(h.waiter),
		WithQuerier(h.querier),
		WithManifestSource(fakeManifests{}),
		WithPipeline(h.pipeline),
		WithDecider(h.decider),
		WithRemediator(h.repair),
	)

	res, err := orch.Run(context.Background())
	if !errors.Is(err, preflight.ErrInsufficientSpace) {
		t.Fatalf("expected ErrInsufficientSpace, got %v", err)
	}
	if h.waiter.calls != 0 || h.pipeline.calls != 0 || h.querier.calls != 0 {
		t.Fatal("run advanced past a failed guard")
	}
	if len(res.Artifacts) != 0 {
		t.Fatalf("backups ran after a failed guard: %+v", res.Artifacts)
	}
}

func TestRunWaiterTimeoutIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	h.waiter.err = errors.New("lock wait timed out")
	orch := newTestOrchestrator(t, cfg, h)

	_, err := orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected waiter error to abort the run")
	}
	if h.pipeline.calls != 0 {
		t.Fatal("pipeline ran after waiter timeout")
	}
	if h.repair.calls != 0 {
		t.Error("repair pass ran before the mutating phase")
	}
}

func TestRunExecutorFatalTriggersRepair(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	h.pipeline.err = errors.New("refresh package index: mirror unreachable")
	orch := newTestOrchestrator(t, cfg, h)

	res, err := orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal pipeline error")
	}
	if h.repair.calls != 1 {
		t.Fatalf("repair calls = %d, want 1", h.repair.calls)
	}
	if h.decider.calls != 0 {
		t.Error("restart decision ran after a fatal error")
	}
	if res.Err == nil {
		t.Error("result did not record the fatal error")
	}
}

func TestRunDryRunSkipsBackupsAndPostSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDryRun())
	h := defaultHarness()
	orch := newTestOrchestrator(t, cfg, h)

	res, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Artifacts) != 0 {
		t.Fatalf("dry run wrote backups: %+v", res.Artifacts)
	}
	if h.querier.calls != 1 {
		t.Fatalf("snapshot queries = %d, want 1 (pre only)", h.querier.calls)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("dry run produced changes: %+v", res.Changes)
	}
	if !h.pipeline.mode.DryRun {
		t.Error("pipeline not run in dry-run mode")
	}
	if !h.decider.dryRun {
		t.Error("decider not told about dry-run")
	}
	if h.repair.calls != 0 {
		t.Error("repair pass ran in dry-run")
	}
}

func TestRunModeFlagsReachPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSecurityOnly())
	cfg.Updates.SkipFlatpak = true
	cfg.Updates.JournalRetentionDays = 14
	h := defaultHarness()
	orch := newTestOrchestrator(t, cfg, h)

	if _, err := orch.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	mode := h.pipeline.mode
	if !mode.SecurityOnly || !mode.SkipApps || mode.JournalRetentionDays != 14 || mode.DryRun {
		t.Fatalf("mode = %+v", mode)
	}
}

func TestRunSnapshotFailureDegradesToWarning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	h.querier = &scriptedQuerier{
		snapshots: [][]snapshot.Package{nil},
		errs:      []error{errors.New("dpkg-query failed")},
	}
	orch := newTestOrchestrator(t, cfg, h)

	res, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("snapshot failure must not be fatal: %v", err)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("changes = %+v, want none", res.Changes)
	}
	if res.Warnings < 1 {
		t.Fatalf("warnings = %d, want at least 1", res.Warnings)
	}
	if h.pipeline.calls != 1 {
		t.Fatal("pipeline skipped after snapshot failure")
	}
}

func TestRunMissingPreSnapshotYieldsNoPhantomChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	h.querier = &scriptedQuerier{
		snapshots: [][]snapshot.Package{
			nil,
			{{Name: "linux-image-generic", Version: "5.15.0-86.96"}, {Name: "curl", Version: "8.5.0-2"}},
		},
		errs: []error{errors.New("dpkg-query failed")},
	}
	orch := newTestOrchestrator(t, cfg, h)

	res, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("missing pre snapshot must degrade to no changes, got %+v", res.Changes)
	}
	if res.KernelChanged {
		t.Fatal("kernel change flagged without a pre snapshot")
	}
	if h.decider.changes.KernelChanged() {
		t.Fatal("decider saw phantom kernel changes")
	}
	if res.RestartState != restart.NoKernelChange {
		t.Fatalf("restart state = %s, want %s", res.RestartState, restart.NoKernelChange)
	}
}

func TestRunKernelChangeReachesDecider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := defaultHarness()
	h.querier = &scriptedQuerier{snapshots: [][]snapshot.Package{
		{{Name: "linux-image-generic", Version: "5.15.0-86.96"}},
		{{Name: "linux-image-generic", Version: "5.15.0-87.97"}},
	}}
	h.decider.state = restart.KernelChangedNonInteractive
	orch := newTestOrchestrator(t, cfg, h)

	res, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.KernelChanged {
		t.Fatal("kernel change not detected")
	}
	if res.RestartState != restart.KernelChangedNonInteractive {
		t.Fatalf("restart state = %s", res.RestartState)
	}
	if !h.decider.changes.KernelChanged() {
		t.Fatal("decider saw a change set without the kernel change")
	}
}
