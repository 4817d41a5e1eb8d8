package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/provisioner"
)

func newValidateCmd(deps *Deps) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the .env configuration",
		Long: `Check the .env configuration of the working directory.

Reports the first missing or malformed value. With --wait, keeps asking
you to fix the file until it passes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := provisioner.New(provisioner.Options{Settings: cfg, In: deps.In, Out: out})

			env, err := p.ValidateConfiguration()
			if err != nil {
				if !wait {
					return err
				}

				color.New(color.FgRed).Fprintf(out, "✗ %v\n", err)

				if env, err = p.PromptUntilValid(cmd.Context()); err != nil {
					return err
				}
			}

			color.New(color.FgGreen).Fprintf(out, "✓ Configuration is valid\n")
			color.New(color.FgCyan).Fprintf(out, "  Site:     %s\n", env.SiteURL)
			color.New(color.FgCyan).Fprintf(out, "  PHP:      %s\n", env.PHPVersion)
			color.New(color.FgCyan).Fprintf(out, "  MySQL:    %s\n", env.MySQLVersion)
			color.New(color.FgCyan).Fprintf(out, "  Nginx:    %s (ssl: %t)\n", env.NginxVersion, env.EnableSSL)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "prompt until the configuration is valid")

	return cmd
}
