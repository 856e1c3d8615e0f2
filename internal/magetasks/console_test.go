package magetasks

import (
	"bytes"
	"strings"
	"testing"
)

func captureOut(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := Out
	Out = &buf
	t.Cleanup(func() { Out = old })
	return &buf
}

func TestPrintHeaders(t *testing.T) {
	buf := captureOut(t)
	PrintH1Header("Test Title")
	PrintH2Header("Test Section")

	output := buf.String()
	if !strings.Contains(output, strings.Repeat("=", headerWidth)) {
		t.Errorf("PrintH1Header output should contain a rule, got: %s", output)
	}
	if !strings.Contains(output, "Test Title") {
		t.Errorf("PrintH1Header output should contain 'Test Title', got: %s", output)
	}
	if !strings.Contains(output, "=== Test Section ===") {
		t.Errorf("PrintH2Header output should contain the section, got: %s", output)
	}
}

func TestPrintMessages(t *testing.T) {
	tests := []struct {
		name  string
		print func(string)
		want  string
	}{
		{"success", PrintSuccess, "✅ done"},
		{"warning", PrintWarning, "⚠️  done"},
		{"error", PrintError, "❌ done"},
		{"info", PrintInfo, "ℹ️  done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOut(t)
			tt.print("done")
			if got := buf.String(); got != tt.want+"\n" {
				t.Errorf("got %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestRun(t *testing.T) {
	buf := captureOut(t)
	ProjectRoot = t.TempDir()

	if err := Run("Echo", "sh", "-c", "echo hello"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(buf.String(), "hello\n") || !strings.Contains(buf.String(), "✅ Echo (") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	err := Run("Missing", "cibot-no-such-binary")
	if !IsCommandNotFound(err) {
		t.Errorf("expected command-not-found, got %v", err)
	}
}
