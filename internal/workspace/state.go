// Package workspace inspects and populates the directory a WordPress
// environment lives in.
//
// The lifecycle position of a directory is never stored explicitly. It is
// inferred on every run from which files exist, so a crashed run can simply
// be started again.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-version"
)

// Well-known files inside the working directory.
const (
	MarkerFile   = ".version"
	ConfigFile   = ".env"
	TemplateFile = ".env.example"
	SecretsFile  = ".env.secrets"
)

// ErrUnknownEnvironment is returned for a non-empty directory without a marker file.
var ErrUnknownEnvironment = errors.New("directory is not empty and does not contain a recognized environment")

// State is the lifecycle position inferred from the directory contents.
type State int

const (
	// Empty means the directory has no entries, or does not exist yet.
	Empty State = iota
	// ProvisionedCompatible means the marker file is present.
	ProvisionedCompatible
	// ProvisionedUnknown means the directory has entries but no marker file.
	ProvisionedUnknown
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case ProvisionedCompatible:
		return "provisioned"
	case ProvisionedUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DetectState probes dir. Only existence is checked, never file contents.
func DetectState(dir string) (State, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Empty, nil
		}

		return Empty, fmt.Errorf("read working directory: %w", err)
	}

	if len(entries) == 0 {
		return Empty, nil
	}

	exists, err := Exists(filepath.Join(dir, MarkerFile))
	if err != nil {
		return Empty, err
	}

	if exists {
		return ProvisionedCompatible, nil
	}

	return ProvisionedUnknown, nil
}

// Exists reports whether path exists. Errors other than "not found" are returned.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("stat %s: %w", path, err)
}

// MarkerVersion parses the version stamp stored in the marker file.
func MarkerVersion(dir string) (*version.Version, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return nil, fmt.Errorf("read marker: %w", err)
	}

	v, err := version.NewVersion(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse marker version: %w", err)
	}

	return v, nil
}
