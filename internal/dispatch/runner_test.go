package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
)

func TestExecRunner_Success(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out bytes.Buffer
	r := ExecRunner{Stdout: &out}
	err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "printf %s \"$GREETING\""}, Env: []string{"GREETING=hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hello" {
		t.Errorf("expected env to reach child, got %q", out.String())
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := ExecRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 4"}})
	if err == nil {
		t.Fatal("expected error")
	}
	var exitErr ExitCodeError
	if !errors.As(err, &exitErr) || exitErr.Code != 4 {
		t.Errorf("expected exit code 4, got %v", err)
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Name: "git", Args: []string{"fetch", "origin"}, Env: []string{"SECRET=x"}}
	if got := c.String(); got != "git fetch origin" {
		t.Errorf("String() = %q", got)
	}
}
