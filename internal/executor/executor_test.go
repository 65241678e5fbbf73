package executor

import (
	"context"
	"errors"
	"testing"

	"upkeep/internal/logging"
	"upkeep/internal/services/apt"
)

type fakePackages struct {
	calls      []string
	refreshErr error
	upgradeErr error
	fullErr    error
	pending    []apt.Pending
}

func (f *fakePackages) RefreshIndex(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return f.refreshErr
}

func (f *fakePackages) SimulateUpgrade(ctx context.Context) ([]apt.Pending, error) {
	f.calls = append(f.calls, "simulate")
	return f.pending, nil
}

func (f *fakePackages) UpgradeConservative(ctx context.Context) error {
	f.calls = append(f.calls, "upgrade")
	return f.upgradeErr
}

func (f *fakePackages) UpgradeFull(ctx context.Context) error {
	f.calls = append(f.calls, "full-upgrade")
	return f.fullErr
}

func (f *fakePackages) AutoRemove(ctx context.Context) error {
	f.calls = append(f.calls, "autoremove")
	return nil
}

func (f *fakePackages) AutoClean(ctx context.Context) error {
	f.calls = append(f.calls, "autoclean")
	return nil
}

type fakeSecurity struct {
	calls      []string
	installErr error
	runErr     error
}

func (f *fakeSecurity) EnsureInstalled(ctx context.Context) error {
	f.calls = append(f.calls, "ensure")
	return f.installErr
}

func (f *fakeSecurity) Run(ctx context.Context) error {
	f.calls = append(f.calls, "run")
	return f.runErr
}

type fakeApps struct {
	calls   []string
	present bool
	updates []string
}

func (f *fakeApps) Present() bool { return f.present }

func (f *fakeApps) ListUpdates(ctx context.Context) ([]string, error) {
	f.calls = append(f.calls, "list")
	return f.updates, nil
}

func (f *fakeApps) ApplyUpdates(ctx context.Context) error {
	f.calls = append(f.calls, "apply")
	return nil
}

type fakeJournal struct {
	calls   []string
	present bool
}

func (f *fakeJournal) Present() bool { return f.present }

func (f *fakeJournal) Vacuum(ctx context.Context, olderThanDays int) error {
	f.calls = append(f.calls, "vacuum")
	return nil
}

func newTestExecutor(pkgs *fakePackages, sec *fakeSecurity, apps *fakeApps, journal *fakeJournal) *Executor {
	return New(pkgs, sec, apps, journal, logging.NewNop())
}

func TestRunRefreshFailureIsFatal(t *testing.T) {
	pkgs := &fakePackages{refreshErr: errors.New("mirror unreachable")}
	exec := newTestExecutor(pkgs, &fakeSecurity{}, &fakeApps{}, &fakeJournal{})

	outcome, err := exec.Run(context.Background(), Mode{})
	if err == nil {
		t.Fatal("expected error from failed index refresh")
	}
	if len(outcome.Steps) != 1 {
		t.Fatalf("expected only the refresh step recorded, got %d", len(outcome.Steps))
	}
	if outcome.Steps[0].Step != StepRefresh || outcome.Steps[0].Status != StatusFailed {
		t.Fatalf("unexpected step record: %+v", outcome.Steps[0])
	}
	if len(pkgs.calls) != 1 {
		t.Fatalf("no further package manager calls expected, got %v", pkgs.calls)
	}
}

func TestRunContinuesPastUpgradeFailures(t *testing.T) {
	pkgs := &fakePackages{
		upgradeErr: errors.New("held packages"),
		fullErr:    errors.New("dependency conflict"),
	}
	journal := &fakeJournal{present: true}
	exec := newTestExecutor(pkgs, &fakeSecurity{}, &fakeApps{present: true}, journal)

	outcome, err := exec.Run(context.Background(), Mode{JournalRetentionDays: 30})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := outcome.Warnings(); got != 2 {
		t.Fatalf("expected 2 warnings, got %d", got)
	}
	want := []string{"refresh", "upgrade", "full-upgrade", "autoremove", "autoclean"}
	if len(pkgs.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", pkgs.calls, want)
	}
	for i, call := range want {
		if pkgs.calls[i] != call {
			t.Fatalf("calls = %v, want %v", pkgs.calls, want)
		}
	}
	if len(journal.calls) != 1 {
		t.Fatalf("journal vacuum should still run, calls = %v", journal.calls)
	}
}

func TestRunDryRunPerformsNoMutations(t *testing.T) {
	pkgs := &fakePackages{pending: []apt.Pending{{Name: "curl", Current: "8.5.0-2", Candidate: "8.5.0-3"}}}
	sec := &fakeSecurity{}
	apps := &fakeApps{present: true, updates: []string{"org.mozilla.firefox"}}
	journal := &fakeJournal{present: true}
	exec := newTestExecutor(pkgs, sec, apps, journal)

	outcome, err := exec.Run(context.Background(), Mode{DryRun: true, JournalRetentionDays: 30})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, call := range pkgs.calls {
		if call != "refresh" && call != "simulate" {
			t.Fatalf("dry-run made mutating call %q", call)
		}
	}
	if len(sec.calls) != 0 {
		t.Fatalf("dry-run touched security upgrader: %v", sec.calls)
	}
	for _, call := range apps.calls {
		if call != "list" {
			t.Fatalf("dry-run made mutating app call %q", call)
		}
	}
	if len(journal.calls) != 0 {
		t.Fatalf("dry-run vacuumed the journal: %v", journal.calls)
	}
	if result, ok := outcome.Find(StepSimulate); !ok || result.Status != StatusOK {
		t.Fatalf("simulate step = %+v, ok = %v", result, ok)
	}
	for _, step := range []Step{StepAutoRemove, StepAutoClean, StepJournalVacuum} {
		result, ok := outcome.Find(step)
		if !ok || result.Status != StatusSkipped {
			t.Fatalf("%s = %+v, ok = %v, want skipped", step, result, ok)
		}
	}
}

func TestRunDryRunWinsOverSecurityOnly(t *testing.T) {
	pkgs := &fakePackages{}
	sec := &fakeSecurity{}
	exec := newTestExecutor(pkgs, sec, &fakeApps{}, &fakeJournal{})

	if _, err := exec.Run(context.Background(), Mode{DryRun: true, SecurityOnly: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sec.calls) != 0 {
		t.Fatalf("security upgrader called in dry-run: %v", sec.calls)
	}
	for _, call := range pkgs.calls {
		if call == "upgrade" || call == "full-upgrade" {
			t.Fatalf("upgrade attempted in dry-run: %v", pkgs.calls)
		}
	}
}

func TestRunSecurityOnly(t *testing.T) {
	pkgs := &fakePackages{}
	sec := &fakeSecurity{}
	exec := newTestExecutor(pkgs, sec, &fakeApps{}, &fakeJournal{})

	outcome, err := exec.Run(context.Background(), Mode{SecurityOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sec.calls) != 2 || sec.calls[0] != "ensure" || sec.calls[1] != "run" {
		t.Fatalf("security calls = %v", sec.calls)
	}
	for _, call := range pkgs.calls {
		if call == "upgrade" || call == "full-upgrade" {
			t.Fatalf("full upgrade path taken in security-only mode: %v", pkgs.calls)
		}
	}
	if result, ok := outcome.Find(StepSecurityUpgrade); !ok || result.Status != StatusOK {
		t.Fatalf("security step = %+v, ok = %v", result, ok)
	}
}

func TestRunSecurityOnlyInstallFailureWarns(t *testing.T) {
	sec := &fakeSecurity{installErr: errors.New("install failed")}
	exec := newTestExecutor(&fakePackages{}, sec, &fakeApps{}, &fakeJournal{})

	outcome, err := exec.Run(context.Background(), Mode{SecurityOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, ok := outcome.Find(StepSecurityUpgrade)
	if !ok || result.Status != StatusWarned {
		t.Fatalf("security step = %+v, ok = %v, want warned", result, ok)
	}
	if len(sec.calls) != 1 {
		t.Fatalf("Run should not follow a failed install, calls = %v", sec.calls)
	}
}

func TestRunAppUpdateSkips(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		apps := &fakeApps{present: true}
		exec := newTestExecutor(&fakePackages{}, &fakeSecurity{}, apps, &fakeJournal{})
		outcome, err := exec.Run(context.Background(), Mode{SkipApps: true})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(apps.calls) != 0 {
			t.Fatalf("app manager called despite skip: %v", apps.calls)
		}
		if result, _ := outcome.Find(StepAppUpdates); result.Status != StatusSkipped || result.Detail != "disabled" {
			t.Fatalf("app step = %+v", result)
		}
	})

	t.Run("absent", func(t *testing.T) {
		exec := newTestExecutor(&fakePackages{}, &fakeSecurity{}, &fakeApps{}, &fakeJournal{})
		outcome, err := exec.Run(context.Background(), Mode{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		result, _ := outcome.Find(StepAppUpdates)
		if result.Status != StatusSkipped {
			t.Fatalf("absent app manager should skip, got %+v", result)
		}
		if outcome.Warnings() != 0 {
			t.Fatalf("absence must not warn, outcome = %+v", outcome)
		}
	})
}

func TestRunJournalVacuumDisabled(t *testing.T) {
	journal := &fakeJournal{present: true}
	exec := newTestExecutor(&fakePackages{}, &fakeSecurity{}, &fakeApps{}, journal)

	outcome, err := exec.Run(context.Background(), Mode{JournalRetentionDays: 0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(journal.calls) != 0 {
		t.Fatalf("vacuum called with retention disabled: %v", journal.calls)
	}
	if result, _ := outcome.Find(StepJournalVacuum); result.Status != StatusSkipped {
		t.Fatalf("journal step = %+v", result)
	}
}
