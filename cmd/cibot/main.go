// cibot merges distributed coverage results and bounces pending Gerrit
// changes through the lint container.
//
// Usage:
//
//	cibot combine                      # coverage_nodes/*/spec_coverage/.resultset.json
//	cibot combine --mode glob --output coverage/.resultset.json
//	cibot bounce --dry-run
//	cibot config
//
// Output modes (auto-detected):
//
//	terminal  styled Unicode summary (default when TTY)
//	llm       terse plain text (default when piped or in CI)
//	json      structured JSON for automation
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/cibot/internal/config"
	"github.com/dkoosis/cibot/internal/logging"
	"github.com/dkoosis/cibot/internal/metrics"
	"github.com/dkoosis/cibot/pkg/pattern"
	"github.com/dkoosis/cibot/pkg/render"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(newApp(stdout, stderr))
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "cibot: %v\n", err)
	return exitCode(err)
}

// exitError carries the process exit code for a command failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error { return &exitError{code: exitUsage, err: err} }
func runFailure(err error) error { return &exitError{code: exitFailure, err: err} }

// exitCode maps err to a process exit code. Errors cobra raises itself
// (unknown commands, bad flags) count as usage errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	stdout, stderr io.Writer

	loader     *config.Loader
	configPath string
	bindErr    error

	cfg *config.Config
	log *slog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, loader: config.NewLoader()}
}

// bind ties flag names on cmd to config keys, keeping the first failure
// for PersistentPreRunE to report.
func (a *app) bind(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if err := a.loader.BindFlag(key, flag); err != nil && a.bindErr == nil {
			a.bindErr = err
		}
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cibot",
		Short: "CI helper: combine coverage shards and bounce pending Gerrit changes",
		Long: `cibot provides the CI support commands.

Commands:
  combine   Merge per-worker coverage result sets into one file
  bounce    Run the lint container against pending Gerrit changes
  config    Print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./"+config.FileName+")")
	pf.String("format", config.DefaultFormat, "summary format: auto, terminal, llm, json")
	pf.String("theme", config.DefaultTheme, "terminal theme: default, orca, mono")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", config.DefaultLogFormat, "log format: text, json")
	pf.Bool("debug", false, "debug logging")
	pf.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	a.bind(root, map[string]string{
		"format":       "output.format",
		"theme":        "output.theme",
		"log-level":    "logging.level",
		"log-format":   "logging.format",
		"debug":        "logging.debug",
		"metrics-file": "metrics.file",
	})

	root.AddCommand(
		newCombineCommand(a),
		newBounceCommand(a),
		newConfigCommand(a),
		newVersionCommand(a),
	)
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup() error {
	if a.bindErr != nil {
		return usageError(a.bindErr)
	}
	cfg, err := a.loader.Load(a.configPath)
	if err != nil {
		return usageError(err)
	}
	log, err := logging.New(a.stderr, cfg.Logging)
	if err != nil {
		return usageError(err)
	}
	a.cfg, a.log = cfg, log
	if used := a.loader.ConfigFileUsed(); used != "" {
		a.log.Debug("loaded config file", "path", used)
	}
	return nil
}

// render writes patterns to stdout in the resolved output format.
func (a *app) render(patterns []pattern.Pattern) {
	_, noColor := os.LookupEnv("NO_COLOR")
	out := config.ResolveOutput(a.cfg.Output, isTTYWriter(a.stdout), noColor)
	a.log.Debug("resolved output",
		"format", out.Format, "format_source", out.FormatSource,
		"theme", out.Theme, "theme_source", out.ThemeSource)

	r, err := render.ForFormat(out.Format, render.ThemeByName(out.Theme), termWidth(a.stdout))
	if err != nil {
		a.log.Error("render summary", "error", err)
		return
	}
	fmt.Fprint(a.stdout, r.Render(patterns))
}

// writeMetrics flushes rec when a metrics file is configured. A failed
// write is logged; it never changes the run's outcome.
func (a *app) writeMetrics(rec *metrics.Recorder) {
	if a.cfg.Metrics.File == "" {
		return
	}
	if err := rec.WriteTextfile(a.cfg.Metrics.File); err != nil {
		a.log.Warn("metrics not written", "error", err)
		return
	}
	a.log.Debug("wrote metrics", "path", a.cfg.Metrics.File)
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termWidth returns the terminal width for w, defaulting to 80.
func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			return tw
		}
	}
	return 80
}
