// Package trust installs the environment's TLS certificate into the local
// trust store so browsers accept the development site.
package trust

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/blackwell-systems/wpenv/internal/logger"
)

// Outcome describes what Install did.
type Outcome int

const (
	// Skipped means SSL is disabled for the environment.
	Skipped Outcome = iota
	// Installed means the platform tool accepted the certificate.
	Installed
	// Manual means the certificate has to be trusted by hand.
	Manual
)

var (
	errNoTool      = errors.New("no certificate trust tool available")
	errUnsupported = errors.New("unsupported platform")
	errNoHome      = errors.New("home directory unknown, cannot locate the login keychain")
)

// Runner executes an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// Installer adds a certificate to the platform trust store.
type Installer struct {
	GOOS     string
	LookPath func(file string) (string, error)
	Runner   Runner

	// Home locates the darwin login keychain. Empty means unknown.
	Home string
}

// NewInstaller returns an Installer for the running platform.
func NewInstaller(runner Runner, lookPath func(string) (string, error)) *Installer {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	return &Installer{GOOS: runtime.GOOS, LookPath: lookPath, Runner: runner, Home: home}
}

// command returns the trust tool invocation for certPath on the installer's platform.
func (i *Installer) command(certPath string) (string, []string, error) {
	switch i.GOOS {
	case "darwin":
		if i.Home == "" {
			return "", nil, errNoHome
		}

		keychain := filepath.Join(i.Home, "Library", "Keychains", "login.keychain-db")

		return "security", []string{"add-trusted-cert", "-r", "trustRoot", "-k", keychain, certPath}, nil
	case "linux":
		return "trust", []string{"anchor", "--store", certPath}, nil
	case "windows":
		return "certutil", []string{"-user", "-addstore", "Root", certPath}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", errUnsupported, i.GOOS)
	}
}

// Install trusts certPath when enabled is true. It never fails the run:
// anything that prevents installation comes back as Manual with the reason.
func (i *Installer) Install(ctx context.Context, enabled bool, certPath string) (Outcome, error) {
	if !enabled {
		return Skipped, nil
	}

	if _, err := os.Stat(certPath); err != nil {
		return Manual, fmt.Errorf("certificate %s not found: %w", certPath, err)
	}

	name, args, err := i.command(certPath)
	if err != nil {
		return Manual, err
	}

	if _, err := i.LookPath(name); err != nil {
		return Manual, fmt.Errorf("%w: %s not found in PATH", errNoTool, name)
	}

	logger.DebugKV(ctx, "installing certificate", "tool", name, "cert", certPath)

	if output, err := i.Runner.Run(ctx, filepath.Dir(certPath), name, args...); err != nil {
		return Manual, fmt.Errorf("%s failed: %w\n%s", name, err, output)
	}

	return Installed, nil
}
