package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkoosis/cibot/internal/version"
)

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Config prints the configuration after defaults, the config file,
environment variables and flags have been applied. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := a.cfg.YAML()
			if err != nil {
				return runFailure(err)
			}
			if used := a.loader.ConfigFileUsed(); used != "" {
				fmt.Fprintf(a.stdout, "# config file: %s\n", used)
			}
			if _, err := a.stdout.Write(data); err != nil {
				return runFailure(err)
			}
			return nil
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.stdout, version.String())
		},
	}
}
