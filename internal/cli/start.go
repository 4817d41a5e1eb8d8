package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/docker"
	"github.com/blackwell-systems/wpenv/internal/workspace"
)

func newStartCmd(deps *Deps) *cobra.Command {
	var pull bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the containers of a provisioned environment",
		Long: `Start the containers of an environment that was already provisioned.

Does not download, validate, build or run the setup script; use
'wpenv up' for that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := requireProvisioned(cfg.Dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			compose := docker.NewCompose(cfg.Dir, deps.Runner)

			color.New(color.FgCyan).Fprintf(out, "Starting environment in %s...\n", cfg.Dir)

			if pull {
				color.New(color.FgCyan).Fprintf(out, "→ Pulling latest images...\n")

				if err := compose.Pull(cmd.Context()); err != nil {
					color.New(color.FgYellow).Fprintf(out, "⚠ Failed to pull images: %v\n", err)
				}
			}

			network := docker.NewLazyNetwork(deps.NewNetworkAPI)
			defer network.Close()

			if _, err := docker.EnsureNetwork(cmd.Context(), network, cfg.Network); err != nil {
				return err
			}

			if err := compose.Up(cmd.Context()); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(out, "✓ Stack started successfully\n")
			color.New(color.FgCyan).Fprintf(out, "\nRun 'wpenv status' to check health\n")

			return nil
		},
	}

	cmd.Flags().BoolVar(&pull, "pull", false, "Pull latest images before starting")

	return cmd
}

// requireProvisioned fails unless dir carries the environment marker.
func requireProvisioned(dir string) error {
	state, err := workspace.DetectState(dir)
	if err != nil {
		return err
	}

	if state != workspace.ProvisionedCompatible {
		return errNotProvisioned(dir, state)
	}

	return nil
}

// ErrNotProvisioned is returned by day-two commands in a directory without an environment.
var ErrNotProvisioned = errors.New("no provisioned environment")

func errNotProvisioned(dir string, state workspace.State) error {
	if state == workspace.ProvisionedUnknown {
		return fmt.Errorf("%w: %s", workspace.ErrUnknownEnvironment, dir)
	}

	return fmt.Errorf("%w in %s (run 'wpenv up' first)", ErrNotProvisioned, dir)
}
