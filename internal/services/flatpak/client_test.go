package flatpak

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"upkeep/internal/services"
)

type fakeRunner struct {
	commands []services.Command
	result   services.Result
	err      error
}

func (f *fakeRunner) Run(_ context.Context, cmd services.Command) (services.Result, error) {
	f.commands = append(f.commands, cmd)
	return f.result, f.err
}

func TestListUpdatesParsesApplications(t *testing.T) {
	runner := &fakeRunner{result: services.Result{Stdout: "org.gimp.GIMP\n\norg.videolan.VLC\n"}}
	client := New(WithRunner(runner), WithAvailabilityProbe(func() bool { return true }))

	apps, err := client.ListUpdates(context.Background())
	if err != nil {
		t.Fatalf("ListUpdates: %v", err)
	}
	want := []string{"org.gimp.GIMP", "org.videolan.VLC"}
	if !reflect.DeepEqual(apps, want) {
		t.Fatalf("unexpected apps: %v", apps)
	}
	args := runner.commands[0].Args
	if !reflect.DeepEqual(args, []string{"remote-ls", "--updates", "--columns=application"}) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestApplyUpdatesNonInteractive(t *testing.T) {
	runner := &fakeRunner{}
	client := New(WithRunner(runner))
	if err := client.ApplyUpdates(context.Background()); err != nil {
		t.Fatalf("ApplyUpdates: %v", err)
	}
	args := runner.commands[0].Args
	if !reflect.DeepEqual(args, []string{"update", "--noninteractive", "-y"}) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestApplyUpdatesWrapsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("remote unreachable")}
	client := New(WithRunner(runner))
	err := client.ApplyUpdates(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}
