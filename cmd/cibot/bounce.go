package main

import (
	"github.com/spf13/cobra"

	"github.com/dkoosis/cibot/internal/config"
	"github.com/dkoosis/cibot/internal/dispatch"
	"github.com/dkoosis/cibot/internal/metrics"
	"github.com/dkoosis/cibot/pkg/gerrit"
	"github.com/dkoosis/cibot/pkg/mapper"
	"github.com/dkoosis/cibot/pkg/pattern"
)

func newBounceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounce",
		Short: "Run the lint container against pending Gerrit changes",
		Long: `Bounce queries Gerrit for open, verified, mergeable changes on the
branch and, one change at a time, fetches the current patch set into the
workspace and runs the check container against it. Changes whose subject
mentions the WIP marker are skipped.

Requires GERRIT_HOST, MASTER_BOUNCER_KEY and WORKSPACE (or their
CIBOT_BOUNCER_* equivalents).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.bounce(cmd)
		},
	}

	f := cmd.Flags()
	f.Bool("dry-run", false, "log the commands without running them")
	f.Bool("continue-on-error", false, "keep checking after a failed change")
	f.String("branch", config.DefaultBranch, "target branch")
	f.String("project", config.DefaultProject, "Gerrit project")
	a.bind(cmd, map[string]string{
		"dry-run":           "bouncer.dry_run",
		"continue-on-error": "bouncer.continue_on_error",
		"branch":            "bouncer.branch",
		"project":           "bouncer.project",
	})
	return cmd
}

func (a *app) bounce(cmd *cobra.Command) error {
	if err := a.cfg.ValidateBouncer(); err != nil {
		return usageError(err)
	}
	b := a.cfg.Bouncer

	client := gerrit.NewClient(b.GerritHost, b.Username, b.Key)
	runner := dispatch.ExecRunner{Dir: b.Workspace, Stdout: a.stdout, Stderr: a.stderr}
	d := dispatch.New(dispatch.Settings{
		GerritHost:      b.GerritHost,
		GitPort:         b.GitPort,
		Project:         b.Project,
		Branch:          b.Branch,
		Workspace:       b.Workspace,
		BouncerKey:      b.Key,
		ReviewLabel:     b.ReviewLabel,
		Image:           b.Image,
		Entrypoint:      b.Entrypoint,
		SSHKeyPath:      b.SSHKeyPath,
		SSHUsername:     b.SSHUsername,
		WIPMarker:       b.WIPMarker,
		DryRun:          b.DryRun,
		ContinueOnError: b.ContinueOnError,
	}, client, runner, a.log)

	rec := metrics.NewRecorder()
	defer a.writeMetrics(rec)

	summary, err := d.Run(cmd.Context())
	rec.ObserveDispatch(summary, err)
	if summary != nil {
		a.render(mapper.FromDispatch(summary))
	}
	if err != nil {
		a.log.Error("bounce failed", "error", err)
		if summary == nil {
			a.render([]pattern.Pattern{mapper.FromError("bounce", err)})
		}
		return runFailure(err)
	}
	return nil
}
