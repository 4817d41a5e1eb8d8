// Package secrets generates and persists the WordPress authentication keys
// and salts for an environment.
//
// A bundle is generated once per environment. The presence of the secrets
// file alone decides whether generation runs, so an existing file is never
// rewritten, whatever its contents.
package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/wpenv/internal/logger"
	"github.com/blackwell-systems/wpenv/internal/workspace"
)

// Alphabet is the character set secret values are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!%#&()-+*.=<>@^_~"

// Length is the number of characters in each secret value.
const Length = 64

// filePermissions restricts the secrets file to its owner.
const filePermissions = 0o600

// ErrUnknownFormat is returned by Export for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown format")

// Names returns the secret names in the order they are written.
func Names() []string {
	return []string{
		"WP_AUTH_KEY",
		"WP_SECURE_AUTH_KEY",
		"WP_LOGGED_IN_KEY",
		"WP_NONCE_KEY",
		"WP_AUTH_SALT",
		"WP_SECURE_AUTH_SALT",
		"WP_LOGGED_IN_SALT",
		"WP_NONCE_SALT",
	}
}

// Secret is a single named value.
type Secret struct {
	Name  string
	Value string
}

// Bundle is an ordered set of secrets.
type Bundle []Secret

// Map returns the bundle keyed by name.
func (b Bundle) Map() map[string]string {
	m := make(map[string]string, len(b))
	for _, s := range b {
		m[s.Name] = s.Value
	}

	return m
}

// Generate draws every secret in Names from r.
// r must be a cryptographically secure source such as crypto/rand.Reader.
func Generate(r io.Reader) (Bundle, error) {
	bundle := make(Bundle, 0, len(Names()))

	for _, name := range Names() {
		value, err := randomString(r, Length)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", name, err)
		}

		bundle = append(bundle, Secret{Name: name, Value: value})
	}

	return bundle, nil
}

// randomString picks n characters from Alphabet without modulo bias.
func randomString(r io.Reader, n int) (string, error) {
	// Largest multiple of len(Alphabet) that fits in a byte.
	limit := 256 - (256 % len(Alphabet))

	var (
		out = make([]byte, 0, n)
		buf = make([]byte, n)
	)

	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}

// Outcome describes what Ensure did.
type Outcome int

const (
	// Created means a new bundle was generated and written.
	Created Outcome = iota
	// Existing means the secrets file was already present and left untouched.
	Existing
	// Unavailable means no secrets file was written, because the random
	// source failed or the write did.
	Unavailable
)

// Path returns the secrets file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, workspace.SecretsFile)
}

// Ensure writes a freshly generated bundle to the secrets file in dir
// unless that file already exists. A failing random source yields
// Unavailable and a nil error: nothing is written and the environment stays
// usable with secrets supplied by other means.
func Ensure(ctx context.Context, dir string, random io.Reader) (Outcome, error) {
	path := Path(dir)

	exists, err := workspace.Exists(path)
	if err != nil {
		return Existing, err
	}

	if exists {
		logger.DebugKV(ctx, "secrets file present, keeping it", "path", path)

		return Existing, nil
	}

	bundle, err := Generate(random)
	if err != nil {
		logger.Warnf(ctx, "random source unavailable, secrets not generated: %v", err)

		return Unavailable, nil
	}

	if err := os.WriteFile(path, encodeEnv(bundle), filePermissions); err != nil {
		_ = os.Remove(path)

		return Unavailable, fmt.Errorf("write secrets: %w", err)
	}

	logger.DebugKV(ctx, "secrets generated", "path", path, "count", len(bundle))

	return Created, nil
}

// Load reads the bundle back from the secrets file in dir.
func Load(dir string) (Bundle, error) {
	values, err := godotenv.Read(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}

	bundle := make(Bundle, 0, len(Names()))

	for _, name := range Names() {
		if v, ok := values[name]; ok {
			bundle = append(bundle, Secret{Name: name, Value: v})
		}
	}

	return bundle, nil
}

// Export encodes the bundle as env, yaml or json.
func Export(bundle Bundle, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "env":
		return encodeEnv(bundle), nil
	case "json":
		data, err := json.MarshalIndent(bundle.Map(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal secrets JSON: %w", err)
		}

		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(bundle.Map())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal secrets YAML: %w", err)
		}

		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s (must be env, yaml, or json)", ErrUnknownFormat, format)
	}
}

func encodeEnv(bundle Bundle) []byte {
	var buf bytes.Buffer
	for _, s := range bundle {
		fmt.Fprintf(&buf, "%s=%q\n", s.Name, s.Value)
	}

	return buf.Bytes()
}
