package magetasks

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Run executes command with args from ProjectRoot, streaming its output to
// Out under a "> name" line and reporting the elapsed time.
func Run(name, command string, args ...string) error {
	fmt.Fprintf(Out, "> %s: %s %s\n", name, command, strings.Join(args, " "))
	start := time.Now()

	cmd := exec.Command(command, args...)
	cmd.Dir = ProjectRoot
	cmd.Stdout = Out
	cmd.Stderr = Out
	if err := cmd.Run(); err != nil {
		PrintError(fmt.Sprintf("%s failed after %s", name, elapsed(start)))
		return fmt.Errorf("%s: %w", name, err)
	}
	PrintSuccess(fmt.Sprintf("%s (%s)", name, elapsed(start)))
	return nil
}

func elapsed(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
