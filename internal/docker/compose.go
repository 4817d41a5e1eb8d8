// Package docker drives the container runtime for a WordPress environment:
// docker compose for the stack itself and the engine API for the shared
// network.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/blackwell-systems/wpenv/internal/logger"
)

// Runner executes an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stream, when set, receives output while the command runs.
	Stream io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var buf bytes.Buffer

	out := io.Writer(&buf)
	if r.Stream != nil {
		out = io.MultiWriter(r.Stream, &buf)
	}

	cmd.Stdout = out
	cmd.Stderr = out

	logger.DebugKV(ctx, "running command", "dir", dir, "command", name+" "+strings.Join(args, " "))

	err := cmd.Run()

	return buf.Bytes(), err
}

// Compose runs docker compose subcommands in a project directory.
type Compose struct {
	Dir    string
	Runner Runner
}

// NewCompose returns a Compose for dir backed by runner.
func NewCompose(dir string, runner Runner) *Compose {
	return &Compose{Dir: dir, Runner: runner}
}

func (c *Compose) run(ctx context.Context, args ...string) ([]byte, error) {
	output, err := c.Runner.Run(ctx, c.Dir, "docker", append([]string{"compose"}, args...)...)
	if err != nil {
		return output, fmt.Errorf("docker compose %s failed: %w\n%s", args[0], err, output)
	}

	return output, nil
}

// Build builds the images of the stack.
func (c *Compose) Build(ctx context.Context) error {
	_, err := c.run(ctx, "build")

	return err
}

// Up starts the stack in the background.
func (c *Compose) Up(ctx context.Context) error {
	_, err := c.run(ctx, "up", "-d")

	return err
}

// Pull refreshes the base images the stack is built from.
func (c *Compose) Pull(ctx context.Context) error {
	_, err := c.run(ctx, "pull")

	return err
}

// Down stops and removes the stack containers.
func (c *Compose) Down(ctx context.Context) error {
	_, err := c.run(ctx, "down")

	return err
}

// Ps returns the container listing for the stack.
func (c *Compose) Ps(ctx context.Context) (string, error) {
	output, err := c.run(ctx, "ps")

	return string(output), err
}

// Exec runs script inside the running service container without a TTY.
func (c *Compose) Exec(ctx context.Context, service, script string) error {
	_, err := c.run(ctx, "exec", "-T", service, script)

	return err
}
