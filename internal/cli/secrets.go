package cli

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/provisioner"
	"github.com/blackwell-systems/wpenv/internal/secrets"
)

func newSecretsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage WordPress keys and salts",
	}

	cmd.AddCommand(newSecretsGenerateCmd(deps), newSecretsShowCmd())

	return cmd
}

func newSecretsGenerateCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate .env.secrets if it does not exist",
		Long: `Generate the eight WordPress keys and salts into .env.secrets.

An existing .env.secrets is never overwritten; delete it first to rotate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			p := provisioner.New(provisioner.Options{Settings: cfg, Out: cmd.OutOrStdout(), Random: deps.Random})

			return p.EnsureSecrets(cmd.Context())
		},
	}
}

func newSecretsShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			bundle, err := secrets.Load(cfg.Dir)
			if err != nil {
				return err
			}

			data, err := secrets.Export(bundle, format)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "env", "output format (env|yaml|json)")

	return cmd
}
