package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}

	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, usage.Error())
		fmt.Fprintln(os.Stderr, "Run 'upkeep --help' for usage.")
		os.Exit(2)
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

// usageError marks command-line mistakes so main can exit 2 instead of 1.
type usageError struct {
	err error
}

func (u usageError) Error() string { return u.err.Error() }

func (u usageError) Unwrap() error { return u.err }
