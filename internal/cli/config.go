package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show resolved wpenv settings",
		Long:  `Show the settings wpenv resolved from flags, WPENV_* variables, ~/.wpenv/config.yaml and defaults.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := config.Display()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), text)

			return nil
		},
	}
}
