// Package cli wires the wpenv commands.
package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/docker"
	"github.com/blackwell-systems/wpenv/internal/logger"
)

// Deps holds the process-level collaborators commands use.
// Tests replace them to run commands without docker or a terminal.
type Deps struct {
	In         io.Reader
	Out        io.Writer
	Runner     docker.Runner
	LookPath   func(file string) (string, error)
	Random     io.Reader
	HTTPClient *http.Client
	// NewNetworkAPI opens an engine API connection and returns its close function.
	NewNetworkAPI func() (docker.NetworkAPI, func(), error)
}

// DefaultDeps returns the collaborators of a real run.
func DefaultDeps() *Deps {
	return &Deps{
		In:         os.Stdin,
		Out:        os.Stdout,
		Runner:     docker.ExecRunner{Stream: os.Stdout},
		LookPath:   exec.LookPath,
		Random:     rand.Reader,
		HTTPClient: http.DefaultClient,
		NewNetworkAPI: func() (docker.NetworkAPI, func(), error) {
			cli, err := docker.NewClient()
			if err != nil {
				return nil, nil, err
			}

			return cli, func() { _ = cli.Close() }, nil
		},
	}
}

// NewRootCmd builds the command tree. Running the root command without a
// subcommand performs the full bootstrap, same as `wpenv up`.
func NewRootCmd(version string, deps *Deps) *cobra.Command {
	up := newUpCmd(deps)

	root := &cobra.Command{
		Use:   "wpenv",
		Short: "Bootstrap a local WordPress development environment",
		Long: `wpenv provisions a local WordPress development environment with docker compose.

In an empty directory it downloads the project template, generates WordPress
keys and salts, waits until the .env configuration is valid, then builds and
starts the containers. In a directory it provisioned before it skips the
download and keeps the existing secrets.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(viper.GetString(config.KeyLogLevel))
			if !ok {
				return fmt.Errorf("invalid log-level: %s (must be debug, info, warn, or error)", viper.GetString(config.KeyLogLevel))
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: up.RunE,
	}

	flags := root.PersistentFlags()
	flags.StringP(config.KeyDir, "C", ".", "working directory of the environment")
	flags.String(config.KeyTemplateURL, config.DefaultTemplateURL, "template archive to download into an empty directory")
	flags.String(config.KeyNetwork, "wordpress-dev", "shared docker network the stack joins")
	flags.String(config.KeySetupService, "php", "compose service the setup script runs in")
	flags.String(config.KeySetupScript, "/usr/local/bin/wp-setup", "setup script executed after the stack starts")
	flags.String(config.KeyCertFile, "nginx/certs/localhost.crt", "certificate to trust when NGINX_ENABLE_SSL=true")
	flags.String(config.KeyLogLevel, "warn", "diagnostic log level (debug|info|warn|error)")

	for _, key := range []string{
		config.KeyDir,
		config.KeyTemplateURL,
		config.KeyNetwork,
		config.KeySetupService,
		config.KeySetupScript,
		config.KeyCertFile,
		config.KeyLogLevel,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(
		up,
		newValidateCmd(deps),
		newStartCmd(deps),
		newStopCmd(deps),
		newStatusCmd(deps),
		newSecretsCmd(deps),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// Execute runs the root command; SIGINT and SIGTERM cancel the run,
// including a pending configuration prompt.
// Errors are printed to stderr and returned for the exit code.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// After the first signal a second one terminates the process.
	context.AfterFunc(ctx, stop)

	err := NewRootCmd(version, DefaultDeps()).ExecuteContext(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
	}

	return err
}
