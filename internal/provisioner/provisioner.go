// Package provisioner implements the bootstrap run for a local WordPress
// environment: detect the directory state, populate it from the template,
// make sure secrets exist, validate the configuration until it is correct,
// then build and start the containers.
//
// Every run infers its position from the filesystem, so an interrupted run
// is resumed by running again.
package provisioner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/docker"
	"github.com/blackwell-systems/wpenv/internal/logger"
	"github.com/blackwell-systems/wpenv/internal/secrets"
	"github.com/blackwell-systems/wpenv/internal/trust"
	"github.com/blackwell-systems/wpenv/internal/workspace"
)

var (
	// ErrMissingDependency is returned when a required executable is not on PATH.
	ErrMissingDependency = errors.New("required tool not found")
	// ErrNotEmpty is returned by Initialize for a directory that is not Empty.
	ErrNotEmpty = errors.New("working directory is not empty")
	// ErrInputClosed is returned when the prompt input ends before the configuration is valid.
	ErrInputClosed = errors.New("input closed before the configuration became valid")
)

// RequiredTools are the executables a run cannot do without.
func RequiredTools() []string {
	return []string{"docker"}
}

// Fetcher populates a directory from the project template.
type Fetcher interface {
	Fetch(ctx context.Context, dir string) error
}

// Compose is the docker compose surface a run needs.
type Compose interface {
	Build(ctx context.Context) error
	Up(ctx context.Context) error
	Exec(ctx context.Context, service, script string) error
}

// TrustInstaller installs the site certificate locally.
type TrustInstaller interface {
	Install(ctx context.Context, enabled bool, certPath string) (trust.Outcome, error)
}

// Provisioner runs the bootstrap sequence against one working directory.
type Provisioner struct {
	settings *config.Config

	in       io.Reader
	out      printer
	random   io.Reader
	lookPath func(string) (string, error)

	fetcher Fetcher
	compose Compose
	network docker.NetworkAPI
	trust   TrustInstaller
}

// Options carries the collaborators of a Provisioner.
type Options struct {
	Settings *config.Config
	In       io.Reader
	Out      io.Writer
	Random   io.Reader
	LookPath func(string) (string, error)
	Fetcher  Fetcher
	Compose  Compose
	Network  docker.NetworkAPI
	Trust    TrustInstaller
}

// New returns a Provisioner wired with opts.
func New(opts Options) *Provisioner {
	return &Provisioner{
		settings: opts.Settings,
		in:       opts.In,
		out:      printer{w: opts.Out},
		random:   opts.Random,
		lookPath: opts.LookPath,
		fetcher:  opts.Fetcher,
		compose:  opts.Compose,
		network:  opts.Network,
		trust:    opts.Trust,
	}
}

func (p *Provisioner) dir() string {
	return p.settings.Dir
}

func (p *Provisioner) configPath() string {
	return filepath.Join(p.dir(), workspace.ConfigFile)
}

// Run executes the full sequence and returns the validated configuration.
func (p *Provisioner) Run(ctx context.Context) (*config.Environment, error) {
	if err := p.CheckDependencies(); err != nil {
		return nil, err
	}

	state, err := p.DetectState()
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "detected working directory state", "dir", p.dir(), "state", state.String())

	switch state {
	case workspace.Empty:
		if err := p.Initialize(ctx); err != nil {
			return nil, err
		}
	case workspace.ProvisionedCompatible:
		if v, err := workspace.MarkerVersion(p.dir()); err == nil {
			p.out.step("Found existing environment (version %s)", v)
		} else {
			p.out.step("Found existing environment")
		}
	case workspace.ProvisionedUnknown:
		return nil, fmt.Errorf("%w: %s has files but no %s marker", workspace.ErrUnknownEnvironment, p.dir(), workspace.MarkerFile)
	}

	if err := p.EnsureSecrets(ctx); err != nil {
		return nil, err
	}

	env, err := p.ValidateConfiguration()
	if err != nil {
		p.out.fail("%v", err)

		env, err = p.PromptUntilValid(ctx)
		if err != nil {
			return nil, err
		}
	}

	p.out.success("Configuration is valid")

	if err := p.Provision(ctx, env); err != nil {
		return nil, err
	}

	p.InstallLocalTrust(ctx, env)

	return env, nil
}

// CheckDependencies verifies every tool in RequiredTools is on PATH.
func (p *Provisioner) CheckDependencies() error {
	for _, tool := range RequiredTools() {
		if _, err := p.lookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingDependency, tool)
		}
	}

	return nil
}

// DetectState reports the lifecycle state of the working directory.
func (p *Provisioner) DetectState() (workspace.State, error) {
	return workspace.DetectState(p.dir())
}

// Initialize downloads the template into an Empty directory and activates
// the configuration template.
func (p *Provisioner) Initialize(ctx context.Context) error {
	state, err := p.DetectState()
	if err != nil {
		return err
	}

	if state != workspace.Empty {
		return fmt.Errorf("%w: %s", ErrNotEmpty, p.dir())
	}

	p.out.step("Downloading project template...")

	if err := p.fetcher.Fetch(ctx, p.dir()); err != nil {
		return err
	}

	if err := workspace.CopyTemplate(p.dir()); err != nil {
		return err
	}

	p.out.success("Project template installed in %s", p.dir())

	return nil
}

// EnsureSecrets generates the secrets file unless it already exists.
// A missing random source only produces a warning.
func (p *Provisioner) EnsureSecrets(ctx context.Context) error {
	outcome, err := secrets.Ensure(ctx, p.dir(), p.random)
	if err != nil {
		return err
	}

	switch outcome {
	case secrets.Created:
		p.out.success("Generated WordPress keys and salts in %s", workspace.SecretsFile)
	case secrets.Unavailable:
		p.out.warn("No secure random source available; add WordPress keys and salts to %s yourself", workspace.SecretsFile)
	case secrets.Existing:
	}

	return nil
}

// ValidateConfiguration loads and checks the configuration file.
// The returned error describes the first violation found.
func (p *Provisioner) ValidateConfiguration() (*config.Environment, error) {
	return config.LoadEnvironment(p.configPath())
}

// PromptUntilValid asks the user to fix the configuration file and checks
// it again after every acknowledgment, for as long as it takes. It only
// gives up when the input ends or ctx is cancelled.
func (p *Provisioner) PromptUntilValid(ctx context.Context) (*config.Environment, error) {
	reader := bufio.NewReader(p.in)

	for {
		p.out.plain("Edit %s to fix the problem above, then press Enter to check again.", p.configPath())

		if err := waitForLine(ctx, reader); err != nil {
			return nil, err
		}

		env, err := p.ValidateConfiguration()
		if err == nil {
			return env, nil
		}

		p.out.fail("%v", err)
	}
}

type lineResult struct {
	line string
	err  error
}

// waitForLine blocks until reader yields a line or ctx is done. A read left
// pending by cancellation finishes in the background and is discarded.
func waitForLine(ctx context.Context, reader *bufio.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan lineResult, 1)

	go func() {
		line, err := reader.ReadString('\n')
		done <- lineResult{line: line, err: err}
	}()

	var res lineResult

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-done:
	}

	if res.err == nil {
		return nil
	}

	if errors.Is(res.err, io.EOF) {
		if res.line != "" {
			return nil
		}

		return ErrInputClosed
	}

	return fmt.Errorf("read input: %w", res.err)
}

// Provision builds the images, makes sure the shared network exists,
// starts the stack and runs the setup script. The first failure aborts
// the sequence; earlier steps are not rolled back.
func (p *Provisioner) Provision(ctx context.Context, env *config.Environment) error {
	p.out.step("Building images for %s...", env.ComposeProjectName)

	if err := p.compose.Build(ctx); err != nil {
		return err
	}

	created, err := docker.EnsureNetwork(ctx, p.network, p.settings.Network)
	if err != nil {
		return err
	}

	if created {
		p.out.step("Created network %s", p.settings.Network)
	}

	p.out.step("Starting containers...")

	if err := p.compose.Up(ctx); err != nil {
		return err
	}

	p.out.step("Running %s in %s...", p.settings.SetupScript, p.settings.SetupService)

	if err := p.compose.Exec(ctx, p.settings.SetupService, p.settings.SetupScript); err != nil {
		return err
	}

	p.out.success("WordPress is running at %s", env.SiteURL)

	return nil
}

// InstallLocalTrust adds the site certificate to the local trust store
// when SSL is enabled. Problems are reported as warnings.
func (p *Provisioner) InstallLocalTrust(ctx context.Context, env *config.Environment) {
	certPath := p.settings.CertFile
	if !filepath.IsAbs(certPath) {
		certPath = filepath.Join(p.dir(), certPath)
	}

	outcome, err := p.trust.Install(ctx, env.EnableSSL, certPath)

	switch outcome {
	case trust.Installed:
		p.out.success("Trusted certificate %s", certPath)
	case trust.Manual:
		p.out.warn("Could not trust %s automatically (%v); add it to your system trust store manually", certPath, err)
	case trust.Skipped:
	}
}
