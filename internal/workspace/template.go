package workspace

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/wpenv/internal/logger"
)

const dirPermissions = 0o755

var (
	errUnexpectedStatus = errors.New("unexpected HTTP status")
	errUnsafePath       = errors.New("archive entry escapes the working directory")
)

// Fetcher downloads the project template archive.
type Fetcher struct {
	Client *http.Client
	URL    string
}

// NewFetcher returns a Fetcher for url using the default HTTP client.
func NewFetcher(url string) *Fetcher {
	return &Fetcher{Client: http.DefaultClient, URL: url}
}

// Fetch downloads the gzip tarball and extracts it into dir,
// dropping the archive's top-level directory.
func (f *Fetcher) Fetch(ctx context.Context, dir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("build template request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	logger.DebugKV(ctx, "downloading template", "url", f.URL)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download template: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download template: %w: %s", errUnexpectedStatus, resp.Status)
	}

	return Extract(ctx, resp.Body, dir)
}

// Extract unpacks a gzip-compressed tarball into dir, stripping the first
// path component of every entry. Entries that would land outside dir are
// rejected.
func Extract(ctx context.Context, r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open template archive: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read template archive: %w", err)
		}

		name, ok := stripTopLevel(hdr.Name)
		if !ok {
			continue
		}

		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %s", errUnsafePath, hdr.Name)
		}

		target := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirPermissions); err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extract %s: %w", name, err)
			}
		case tar.TypeSymlink:
			if err := linkEntry(hdr.Linkname, target, name); err != nil {
				return err
			}
		case tar.TypeLink:
			if err := hardLinkEntry(dir, hdr.Linkname, target, name); err != nil {
				return err
			}
		default:
			logger.Warnf(ctx, "skipping unsupported template entry %s (type %q)", hdr.Name, hdr.Typeflag)
		}
	}
}

// stripTopLevel drops the first path component. ok is false when nothing remains.
func stripTopLevel(name string) (string, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")

	_, rest, found := strings.Cut(name, "/")
	rest = strings.Trim(rest, "/")

	if !found || rest == "" {
		return "", false
	}

	return filepath.FromSlash(rest), true
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

func linkEntry(linkname, target, name string) error {
	if filepath.IsAbs(linkname) || !filepath.IsLocal(filepath.Join(filepath.Dir(name), linkname)) {
		return fmt.Errorf("%w: %s -> %s", errUnsafePath, name, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}

	return nil
}

// hardLinkEntry links target to an entry extracted earlier. linkname is an
// archive path, so it carries the top-level component too.
func hardLinkEntry(dir, linkname, target, name string) error {
	source, ok := stripTopLevel(linkname)
	if !ok || !filepath.IsLocal(source) {
		return fmt.Errorf("%w: %s => %s", errUnsafePath, name, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	if err := os.Link(filepath.Join(dir, source), target); err != nil {
		return fmt.Errorf("link %s: %w", name, err)
	}

	return nil
}

// CopyTemplate copies the configuration template to the active configuration path.
func CopyTemplate(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, TemplateFile))
	if err != nil {
		return fmt.Errorf("read configuration template: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ConfigFile), data, 0o644); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}

	return nil
}
