package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/wpenv/internal/workspace"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wpenv version %s\n", cmd.Root().Version)
			fmt.Fprintf(out, "  Platform:         %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "  Marker file:      %s\n", workspace.MarkerFile)
			fmt.Fprintf(out, "  Secrets file:     %s\n", workspace.SecretsFile)
		},
	}
}
