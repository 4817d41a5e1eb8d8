package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/docker"
	"github.com/blackwell-systems/wpenv/internal/provisioner"
	"github.com/blackwell-systems/wpenv/internal/trust"
	"github.com/blackwell-systems/wpenv/internal/workspace"
)

func newUpCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Provision and start the environment",
		Long: `Provision the WordPress environment in the working directory.

Runs every step in order: dependency check, template download (empty
directory only), secret generation (only if .env.secrets is missing),
configuration validation with a prompt until it passes, image build,
network creation, container start, setup script, and certificate trust
when NGINX_ENABLE_SSL=true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			network := docker.NewLazyNetwork(deps.NewNetworkAPI)
			defer network.Close()

			p := provisioner.New(provisioner.Options{
				Settings: cfg,
				In:       deps.In,
				Out:      cmd.OutOrStdout(),
				Random:   deps.Random,
				LookPath: deps.LookPath,
				Fetcher:  &workspace.Fetcher{Client: deps.HTTPClient, URL: cfg.TemplateURL},
				Compose:  docker.NewCompose(cfg.Dir, deps.Runner),
				Network:  network,
				Trust:    trust.NewInstaller(deps.Runner, deps.LookPath),
			})

			env, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Environment %s is ready\n", env.ComposeProjectName)

			return nil
		},
	}
}
