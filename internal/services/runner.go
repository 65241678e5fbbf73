package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external tool invocation.
type Command struct {
	Name string
	Args []string
	// Env entries are appended to the inherited environment.
	Env []string
}

// Result captures the observable outcome of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts external tool execution so service clients can be
// exercised with recording fakes in tests.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// NewRunner returns the exec-backed runner used outside tests.
func NewRunner() CommandRunner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, spec Command) (Result, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...) //nolint:gosec
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("%s exited %d: %s", spec.Name, result.ExitCode, stderrTail(result.Stderr))
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s: %w", spec.Name, ctx.Err())
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("run %s: %w", spec.Name, err)
	}
}

// stderrTail trims captured stderr to the last few lines so wrapped errors
// stay readable while keeping the part apt actually complains in.
func stderrTail(output string) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "(no stderr)"
	}
	lines := strings.Split(trimmed, "\n")
	const keep = 4
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, " | ")
}

// Available reports whether the named binary resolves on PATH.
func Available(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
