package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/docker"
)

func newStopCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the environment",
		Long:  `Stop and remove the containers of the environment. Volumes and files are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := requireProvisioned(cfg.Dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgCyan).Fprintf(out, "Stopping environment in %s...\n", cfg.Dir)

			if err := docker.NewCompose(cfg.Dir, deps.Runner).Down(cmd.Context()); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(out, "✓ Stack stopped successfully\n")

			return nil
		},
	}
}
