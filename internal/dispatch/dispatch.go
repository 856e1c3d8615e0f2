// Package dispatch drives automated lint checks for pending Gerrit changes.
//
// For every open, verified, mergeable change on the configured branch it
// fetches the current patch set and runs the check container against it,
// one change at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/dkoosis/cibot/pkg/gerrit"
)

// Settings is the dispatcher's slice of the application config.
type Settings struct {
	GerritHost  string
	GitPort     int
	Project     string
	Branch      string
	Workspace   string
	BouncerKey  string
	ReviewLabel string
	Image       string
	Entrypoint  string
	SSHKeyPath  string
	SSHUsername string
	WIPMarker   string

	DryRun          bool
	ContinueOnError bool
}

// ChangeSource lists candidate changes. *gerrit.Client implements it.
type ChangeSource interface {
	QueryChanges(ctx context.Context, query string) ([]gerrit.Change, error)
}

// CheckInfo is what the check needs to know about one change.
type CheckInfo struct {
	ChangeID string
	Branch   string
	Revision string
	RefSpec  string
	Patchset int
}

// NewCheckInfo extracts the current patch set of ch.
func NewCheckInfo(ch gerrit.Change) (CheckInfo, error) {
	rev, err := ch.Current()
	if err != nil {
		return CheckInfo{}, err
	}
	return CheckInfo{
		ChangeID: ch.ChangeID,
		Branch:   ch.Branch,
		Revision: ch.CurrentRevision,
		RefSpec:  rev.Ref,
		Patchset: rev.Number,
	}, nil
}

// Failure is a change whose check could not complete.
type Failure struct {
	ChangeID string
	Err      error
}

// Summary reports what one dispatch pass did.
type Summary struct {
	Checked []string
	Skipped []string
	Failed  []Failure
}

// Dispatcher checks pending changes sequentially.
type Dispatcher struct {
	settings Settings
	source   ChangeSource
	runner   Runner
	log      *slog.Logger
}

// New returns a Dispatcher. A nil logger discards output.
func New(s Settings, source ChangeSource, runner Runner, log *slog.Logger) *Dispatcher {
	if s.WIPMarker == "" {
		s.WIPMarker = "wip"
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{settings: s, source: source, runner: runner, log: log}
}

// IsWIP reports whether subject carries the work-in-progress marker,
// compared under Unicode case folding.
func (d *Dispatcher) IsWIP(subject string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(subject), fold.String(d.settings.WIPMarker))
}

// Run queries pending changes and checks each one in order. It stops at
// the first failure unless ContinueOnError is set, in which case all
// failures are joined into the returned error.
func (d *Dispatcher) Run(ctx context.Context) (*Summary, error) {
	query := gerrit.BuildQuery(d.settings.Project, d.settings.Branch)
	d.log.Debug("querying changes", "query", query)
	changes, err := d.source.QueryChanges(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	d.log.Info("found pending changes", "count", len(changes))

	summary := &Summary{}
	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if d.IsWIP(ch.Subject) {
			d.log.Info("skipping work-in-progress change", "change_id", ch.ChangeID, "subject", ch.Subject)
			summary.Skipped = append(summary.Skipped, ch.ChangeID)
			continue
		}

		err := d.checkChange(ctx, ch)
		if err == nil {
			summary.Checked = append(summary.Checked, ch.ChangeID)
			continue
		}
		summary.Failed = append(summary.Failed, Failure{ChangeID: ch.ChangeID, Err: err})
		if !d.settings.ContinueOnError {
			return summary, fmt.Errorf("check %s: %w", ch.ChangeID, err)
		}
		d.log.Error("check failed, continuing", "change_id", ch.ChangeID, "error", err)
	}

	if len(summary.Failed) > 0 {
		errs := make([]error, 0, len(summary.Failed))
		for _, f := range summary.Failed {
			errs = append(errs, fmt.Errorf("check %s: %w", f.ChangeID, f.Err))
		}
		return summary, errors.Join(errs...)
	}
	return summary, nil
}

func (d *Dispatcher) checkChange(ctx context.Context, ch gerrit.Change) error {
	info, err := NewCheckInfo(ch)
	if err != nil {
		return err
	}
	d.log.Info("checking change",
		"change_id", info.ChangeID,
		"branch", info.Branch,
		"revision", info.Revision,
		"patchset", info.Patchset)
	d.log.Debug("change detail", "subject", ch.Subject, "ref", info.RefSpec, "number", ch.Number)

	for _, cmd := range []Command{d.FetchCommand(info), d.CheckCommand(info)} {
		d.log.Info("> "+cmd.String(), "dry_run", d.settings.DryRun)
		if d.settings.DryRun {
			continue
		}
		if err := d.runner.Run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// FetchCommand fetches the change's patch set ref into the workspace repo.
func (d *Dispatcher) FetchCommand(info CheckInfo) Command {
	port := d.settings.GitPort
	if port == 0 {
		port = 29418
	}
	cmd := Command{
		Name: "git",
		Args: []string{
			"fetch",
			fmt.Sprintf("ssh://%s:%d/%s", d.settings.GerritHost, port, d.settings.Project),
			info.RefSpec,
		},
	}
	if d.settings.SSHKeyPath != "" && d.settings.SSHUsername != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("GIT_SSH_COMMAND=ssh -i %q -l %q",
			d.settings.SSHKeyPath, d.settings.SSHUsername))
	}
	return cmd
}

// CheckCommand runs the check container for one patch set. The bouncer key
// is passed through the environment so it never appears on the command line.
func (d *Dispatcher) CheckCommand(info CheckInfo) Command {
	s := d.settings
	env := []struct{ key, value string }{
		{"GERGICH_REVIEW_LABEL", s.ReviewLabel},
		{"GERRIT_HOST", s.GerritHost},
		{"GERRIT_PROJECT", s.Project},
		{"GERRIT_BRANCH", info.Branch},
		{"GERRIT_PATCHSET_REVISION", info.Revision},
		{"GERRIT_CHANGE_ID", info.ChangeID},
		{"GERRIT_PATCHSET_NUMBER", strconv.Itoa(info.Patchset)},
	}

	args := []string{
		"run",
		"--volume", strings.TrimRight(s.Workspace, "/") + "/.git:/app/.git",
		"--env", "MASTER_BOUNCER_KEY",
	}
	for _, e := range env {
		args = append(args, "--env", e.key+"="+e.value)
	}
	args = append(args, "--entrypoint", s.Entrypoint, s.Image, "check")

	return Command{
		Name: "docker",
		Args: args,
		Env:  []string{"MASTER_BOUNCER_KEY=" + s.BouncerKey},
	}
}
