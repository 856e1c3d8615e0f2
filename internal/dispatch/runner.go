package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrNonZeroExit is returned when a command ran but exited non-zero.
var ErrNonZeroExit = errors.New("command exited with non-zero code")

// ExitCodeError carries the exit code of a failed command.
type ExitCodeError struct {
	Code int
}

func (e ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// Command is an external process invocation. Env entries are KEY=VALUE
// pairs added to the inherited environment and never rendered by String.
type Command struct {
	Name string
	Args []string
	Env  []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes, streaming their output.
type ExecRunner struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts c and waits for it. A non-zero exit is reported as
// ErrNonZeroExit wrapping an ExitCodeError.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = orDiscard(r.Stdout)
	cmd.Stderr = orDiscard(r.Stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s: %w: %w", c.Name, ErrNonZeroExit, ExitCodeError{Code: exitErr.ExitCode()})
	}
	return fmt.Errorf("%s: %w", c.Name, err)
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
