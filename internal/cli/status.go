package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/docker"
	"github.com/blackwell-systems/wpenv/internal/workspace"
)

func newStatusCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of the environment",
		Long:  `Display the directory state, template version, containers and site health.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			state, err := workspace.DetectState(cfg.Dir)
			if err != nil {
				return err
			}

			color.New(color.FgCyan).Fprintf(out, "Directory:   %s (%s)\n", cfg.Dir, state)

			if state != workspace.ProvisionedCompatible {
				return errNotProvisioned(cfg.Dir, state)
			}

			if v, err := workspace.MarkerVersion(cfg.Dir); err == nil {
				color.New(color.FgCyan).Fprintf(out, "Template:    %s\n", v)
			} else {
				color.New(color.FgYellow).Fprintf(out, "Template:    ⚠ %v\n", err)
			}

			env, err := config.LoadEnvironment(filepath.Join(cfg.Dir, workspace.ConfigFile))
			if err != nil {
				color.New(color.FgRed).Fprintf(out, "Config:      ✗ %v\n", err)
			} else {
				color.New(color.FgCyan).Fprintf(out, "Project:     %s\n", env.ComposeProjectName)
				printServiceStatus(out, "Site", docker.SiteStatus(cmd.Context(), env.SiteURL), env.SiteURL)
			}

			ps, err := docker.NewCompose(cfg.Dir, deps.Runner).Ps(cmd.Context())
			if err != nil {
				color.New(color.FgRed).Fprintf(out, "✗ Failed to list containers: %v\n", err)

				return err
			}

			color.New(color.FgCyan).Fprintf(out, "\nContainers:\n")
			fmt.Fprint(out, ps)

			return nil
		},
	}
}

func printServiceStatus(out io.Writer, name string, status docker.ServiceStatus, url string) {
	var statusText string

	switch status {
	case docker.ServiceUp:
		statusText = color.GreenString("✓ UP")
	case docker.ServiceDown:
		statusText = color.RedString("✗ DOWN")
	case docker.ServiceStarting:
		statusText = color.YellowString("⚠ STARTING")
	default:
		statusText = color.RedString("✗ UNKNOWN")
	}

	fmt.Fprintf(out, "%-12s %s   %s\n", name+":", statusText, url)
}
