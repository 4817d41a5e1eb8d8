package provisioner_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/wpenv/internal/config"
	"github.com/blackwell-systems/wpenv/internal/provisioner"
	"github.com/blackwell-systems/wpenv/internal/secrets"
	"github.com/blackwell-systems/wpenv/internal/trust"
	"github.com/blackwell-systems/wpenv/internal/workspace"
	"github.com/blackwell-systems/wpenv/internal/workspace/workspacetest"
)

var (
	errNoSuchNetwork = errors.New("network wordpress-dev not found")
	errBuildFailed   = errors.New("docker compose build failed")
	errNotOnPath     = errors.New("executable file not found in $PATH")
	errNoEntropy     = errors.New("entropy source closed")
)

const validEnv = `PHP_VERSION=8.2
WP_SITE_URL=https://example.test
WP_EMAIL=wp@example.test
MYSQL_VERSION=8.0
MYSQL_USER=wordpress
MYSQL_PASSWORD=secret
MYSQL_ROOT_PASSWORD=root-secret
MYSQL_DATABASE=wordpress
NGINX_VERSION=1.25
NGINX_SERVER_NAME=example.test
COMPOSE_PROJECT_NAME=example
`

type fakeCompose struct {
	calls    []string
	buildErr error
}

func (f *fakeCompose) Build(context.Context) error {
	f.calls = append(f.calls, "build")

	return f.buildErr
}

func (f *fakeCompose) Up(context.Context) error {
	f.calls = append(f.calls, "up")

	return nil
}

func (f *fakeCompose) Exec(_ context.Context, service, script string) error {
	f.calls = append(f.calls, "exec "+service+" "+script)

	return nil
}

type mockNetworkAPI struct {
	mock.Mock
}

func (m *mockNetworkAPI) NetworkInspect(
	ctx context.Context,
	networkID string,
	options network.InspectOptions,
) (network.Inspect, error) {
	args := m.Called(ctx, networkID, options)

	return args.Get(0).(network.Inspect), args.Error(1)
}

func (m *mockNetworkAPI) NetworkCreate(
	ctx context.Context,
	name string,
	options network.CreateOptions,
) (network.CreateResponse, error) {
	args := m.Called(ctx, name, options)

	return args.Get(0).(network.CreateResponse), args.Error(1)
}

type fakeTrust struct {
	enabled []bool
	outcome trust.Outcome
}

func (f *fakeTrust) Install(_ context.Context, enabled bool, _ string) (trust.Outcome, error) {
	f.enabled = append(f.enabled, enabled)
	if !enabled {
		return trust.Skipped, nil
	}

	return f.outcome, nil
}

type countingFetcher struct {
	calls int
}

func (f *countingFetcher) Fetch(context.Context, string) error {
	f.calls++

	return nil
}

// fixingReader rewrites the configuration file the first time it is read,
// like a user editing the file before pressing Enter.
type fixingReader struct {
	path     string
	contents string
	reads    int
}

func (r *fixingReader) Read(p []byte) (int, error) {
	r.reads++
	if err := os.WriteFile(r.path, []byte(r.contents), 0o600); err != nil {
		return 0, err
	}

	return copy(p, "\n"), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errNoEntropy }

func onPath(file string) (string, error) { return "/usr/bin/" + file, nil }

type harness struct {
	dir     string
	out     *bytes.Buffer
	compose *fakeCompose
	network *mockNetworkAPI
	trust   *fakeTrust
	opts    provisioner.Options
}

func newHarness(t *testing.T, dir string) *harness {
	t.Helper()

	h := &harness{
		dir:     dir,
		out:     &bytes.Buffer{},
		compose: &fakeCompose{},
		network: &mockNetworkAPI{},
		trust:   &fakeTrust{outcome: trust.Installed},
	}

	h.opts = provisioner.Options{
		Settings: &config.Config{
			Dir:          dir,
			TemplateURL:  "https://example.test/template.tar.gz",
			Network:      "wordpress-dev",
			SetupService: "php",
			SetupScript:  "/usr/local/bin/wp-setup",
			CertFile:     "nginx/certs/localhost.crt",
		},
		In:       strings.NewReader(""),
		Out:      h.out,
		Random:   rand.Reader,
		LookPath: onPath,
		Fetcher:  &countingFetcher{},
		Compose:  h.compose,
		Network:  h.network,
		Trust:    h.trust,
	}

	return h
}

func (h *harness) expectNetworkExists() {
	h.network.On("NetworkInspect", mock.Anything, "wordpress-dev", mock.Anything).Return(network.Inspect{}, nil)
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func TestRunFreshDirectoryWithPromptedFix(t *testing.T) {
	t.Parallel()

	archive := workspacetest.Archive(t, "wordpress-template-main", map[string]string{
		".version":           "1.4.0\n",
		".env.example":       strings.Replace(validEnv, "wp@example.test", "wp@example", 1),
		"docker-compose.yml": "services: {}\n",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "site")
	h := newHarness(t, dir)
	h.expectNetworkExists()

	input := &fixingReader{path: filepath.Join(dir, workspace.ConfigFile), contents: validEnv}
	h.opts.In = input
	h.opts.Fetcher = &workspace.Fetcher{Client: srv.Client(), URL: srv.URL}

	env, err := provisioner.New(h.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wp@example.test", env.Email)

	out := h.out.String()
	assert.Equal(t, 1, strings.Count(out, "✗"), out)
	assert.Contains(t, out, config.EnvEmail)
	assert.Equal(t, 1, strings.Count(out, "press Enter"), out)
	assert.Equal(t, 1, input.reads)

	assert.Equal(t, []string{"build", "up", "exec php /usr/local/bin/wp-setup"}, h.compose.calls)
	assert.FileExists(t, filepath.Join(dir, "docker-compose.yml"))
	assert.FileExists(t, secrets.Path(dir))
	assert.Equal(t, []bool{false}, h.trust.enabled)
}

func TestRunProvisionedDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, workspace.MarkerFile, "1.4.0\n")
	writeFile(t, dir, workspace.ConfigFile, validEnv)
	writeFile(t, dir, workspace.SecretsFile, "WP_AUTH_KEY=\"kept\"\n")

	h := newHarness(t, dir)
	h.expectNetworkExists()

	fetcher := &countingFetcher{}
	h.opts.Fetcher = fetcher

	_, err := provisioner.New(h.opts).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, fetcher.calls)
	assert.NotContains(t, h.out.String(), "✗")
	assert.Contains(t, h.out.String(), "version 1.4.0")
	assert.Equal(t, []string{"build", "up", "exec php /usr/local/bin/wp-setup"}, h.compose.calls)

	data, err := os.ReadFile(secrets.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "WP_AUTH_KEY=\"kept\"\n", string(data))
}

func TestRunUnknownDirectoryHalts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "mine")

	h := newHarness(t, dir)

	_, err := provisioner.New(h.opts).Run(context.Background())
	require.ErrorIs(t, err, workspace.ErrUnknownEnvironment)

	assert.Empty(t, h.compose.calls)
	h.network.AssertNotCalled(t, "NetworkInspect", mock.Anything, mock.Anything, mock.Anything)
	assert.NoFileExists(t, secrets.Path(dir))
}

func TestRunMissingDockerHalts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := newHarness(t, dir)
	fetcher := &countingFetcher{}
	h.opts.Fetcher = fetcher
	h.opts.LookPath = func(string) (string, error) { return "", errNotOnPath }

	_, err := provisioner.New(h.opts).Run(context.Background())
	require.ErrorIs(t, err, provisioner.ErrMissingDependency)
	assert.Contains(t, err.Error(), "docker")
	assert.Zero(t, fetcher.calls)
}

func TestRunStopsWhenInputCloses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, workspace.MarkerFile, "1.4.0\n")
	writeFile(t, dir, workspace.ConfigFile, "PHP_VERSION=8.2\n")

	h := newHarness(t, dir)

	_, err := provisioner.New(h.opts).Run(context.Background())
	require.ErrorIs(t, err, provisioner.ErrInputClosed)
	assert.Empty(t, h.compose.calls)
}

func TestPromptUntilValidReportsOneViolationPerAttempt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Missing WP_SITE_URL and MYSQL_USER.
	broken := strings.NewReplacer("WP_SITE_URL=https://example.test\n", "", "MYSQL_USER=wordpress\n", "").Replace(validEnv)
	writeFile(t, dir, workspace.ConfigFile, broken)

	h := newHarness(t, dir)
	h.opts.In = strings.NewReader("\n\n")

	_, err := provisioner.New(h.opts).PromptUntilValid(context.Background())
	require.ErrorIs(t, err, provisioner.ErrInputClosed)

	out := h.out.String()
	assert.Equal(t, 2, strings.Count(out, "✗"), out)
	assert.Equal(t, 2, strings.Count(out, config.EnvSiteURL), out)
	assert.NotContains(t, out, config.EnvMySQLUser)
}

func TestPromptUntilValidHonorsCancellation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir())
	h.opts.In = strings.NewReader("\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provisioner.New(h.opts).PromptUntilValid(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPromptUntilValidCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	in, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })

	h := newHarness(t, t.TempDir())
	h.opts.In = in

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		_, err := provisioner.New(h.opts).PromptUntilValid(ctx)
		done <- err
	}()

	time.AfterFunc(100*time.Millisecond, cancel)

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("PromptUntilValid did not return after cancellation")
	}
}

func TestValidateConfigurationMissingFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir())

	_, err := provisioner.New(h.opts).ValidateConfiguration()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsureSecretsWarnsWithoutRandomSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := newHarness(t, dir)
	h.opts.Random = failingReader{}

	require.NoError(t, provisioner.New(h.opts).EnsureSecrets(context.Background()))
	assert.Contains(t, h.out.String(), "⚠")
	assert.NoFileExists(t, secrets.Path(dir))
}

func TestInitializeRequiresEmptyDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, workspace.MarkerFile, "1.0.0")

	h := newHarness(t, dir)
	fetcher := &countingFetcher{}
	h.opts.Fetcher = fetcher

	err := provisioner.New(h.opts).Initialize(context.Background())
	require.ErrorIs(t, err, provisioner.ErrNotEmpty)
	assert.Zero(t, fetcher.calls)
}

func TestProvisionCreatesMissingNetwork(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir())
	h.network.On("NetworkInspect", mock.Anything, "wordpress-dev", mock.Anything).
		Return(network.Inspect{}, errNoSuchNetwork).Once()
	h.network.On("NetworkCreate", mock.Anything, "wordpress-dev", mock.Anything).
		Return(network.CreateResponse{ID: "net-1"}, nil).Once()

	env := &config.Environment{ComposeProjectName: "example", SiteURL: "https://example.test"}

	require.NoError(t, provisioner.New(h.opts).Provision(context.Background(), env))
	h.network.AssertExpectations(t)
	assert.Contains(t, h.out.String(), "Created network wordpress-dev")
}

func TestProvisionAbortsOnFirstFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir())
	h.compose.buildErr = errBuildFailed

	env := &config.Environment{ComposeProjectName: "example"}

	err := provisioner.New(h.opts).Provision(context.Background(), env)
	require.ErrorIs(t, err, errBuildFailed)
	assert.Equal(t, []string{"build"}, h.compose.calls)
	h.network.AssertNotCalled(t, "NetworkInspect", mock.Anything, mock.Anything, mock.Anything)
}

func TestInstallLocalTrust(t *testing.T) {
	t.Parallel()

	h := newHarness(t, t.TempDir())
	p := provisioner.New(h.opts)

	p.InstallLocalTrust(context.Background(), &config.Environment{EnableSSL: true})
	assert.Contains(t, h.out.String(), "✓ Trusted certificate")

	h.trust.outcome = trust.Manual
	p.InstallLocalTrust(context.Background(), &config.Environment{EnableSSL: true})
	assert.Contains(t, h.out.String(), "⚠ Could not trust")

	assert.Equal(t, []bool{true, true}, h.trust.enabled)
}
