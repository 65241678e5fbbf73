package restart

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// TerminalInteraction prompts on the process's own terminal. The prompt
// defaults to no: only an explicit "y" or "yes" reboots.
type TerminalInteraction struct {
	in  io.Reader
	out io.Writer

	interactive func() bool
}

// NewTerminalInteraction builds an interaction over the process stdio.
// Interactivity requires both stdin and stdout to be terminals; a piped
// run never prompts.
func NewTerminalInteraction() *TerminalInteraction {
	return &TerminalInteraction{
		in:  os.Stdin,
		out: os.Stdout,
		interactive: func() bool {
			return terminalFile(os.Stdin) && terminalFile(os.Stdout)
		},
	}
}

func terminalFile(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether the operator can be prompted.
func (t *TerminalInteraction) Interactive() bool {
	return t.interactive()
}

// ConfirmReboot asks the operator and returns true only for an explicit
// affirmative. Empty or unrecognized input declines.
func (t *TerminalInteraction) ConfirmReboot() (bool, error) {
	if _, err := fmt.Fprint(t.out, "Kernel updated. Restart now? [y/N] "); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			// A closed stdin declines, same as an empty answer.
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
