// Package fetcher resolves a distribution identifier to a local extracted
// directory. Downloads go through a Transport selected once at
// construction; archives are cached by filename inside the workspace and
// extracted into its per-run extraction directory.
package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/duallife/internal/dist"
)

// Transport fetches one URL to a local destination path.
type Transport interface {
	Fetch(url, dest string) error
}

// Fetcher downloads and extracts distribution archives sequentially.
type Fetcher struct {
	mirror    string
	workspace *Workspace
	transport Transport
	logger    *log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTransport overrides the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(f *Fetcher) { f.transport = t }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher for the given mirror and workspace.
func New(mirror string, ws *Workspace, opts ...Option) *Fetcher {
	f := &Fetcher{
		mirror:    strings.TrimSuffix(mirror, "/"),
		workspace: ws,
		transport: &httpTransport{client: &http.Client{}},
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves a distribution id to the root directory of its extracted
// archive, downloading the archive unless a previous run cached it. A
// zero-length cached file counts as a failed prior download and is
// re-fetched.
func (f *Fetcher) Fetch(id dist.ID) (string, error) {
	urlPath, err := id.URLPath()
	if err != nil {
		return "", err
	}
	archivePath := filepath.Join(f.workspace.ArchiveDir(), id.Filename())

	if info, statErr := os.Stat(archivePath); statErr == nil && info.Size() == 0 {
		f.logger.Warn("removing empty cached archive", "path", archivePath)
		if err := os.Remove(archivePath); err != nil {
			return "", fmt.Errorf("removing empty archive: %w", err)
		}
	}

	if _, statErr := os.Stat(archivePath); statErr != nil {
		url := f.mirror + "/" + urlPath
		f.logger.Debug("downloading", "url", url)
		if err := f.transport.Fetch(url, archivePath); err != nil {
			return "", fmt.Errorf("fetching %s: %w", id, err)
		}
	} else {
		f.logger.Debug("using cached archive", "path", archivePath)
	}

	root, err := extract(archivePath, f.workspace.ExtractDir(), f.logger)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", id.Filename(), err)
	}

	// Distributions conventionally unpack into <name>-<version>/, but a
	// few name their top directory differently; extract reports what it
	// actually created.
	conventional := filepath.Join(f.workspace.ExtractDir(), id.ExtractedDir())
	if _, statErr := os.Stat(conventional); statErr == nil {
		return conventional, nil
	}
	return root, nil
}

type httpTransport struct {
	client *http.Client
}

func (t *httpTransport) Fetch(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	resp, err := t.client.Get(url)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: HTTP %d", url, resp.StatusCode)
	}

	// Write to temp file first, then rename
	tmpPath := dest + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing file: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming file: %w", err)
	}

	return nil
}

type commandTransport struct {
	name string
	args []string
}

// NewCommandTransport builds a transport that shells out to an external
// download command; the URL and destination path are appended to args.
func NewCommandTransport(name string, args ...string) Transport {
	return &commandTransport{name: name, args: args}
}

func (t *commandTransport) Fetch(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	cmd := exec.Command(t.name, append(append([]string{}, t.args...), url, dest)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("running %s: %w", t.name, err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		os.Remove(dest)
		return fmt.Errorf("%s produced no output for %s", t.name, url)
	}
	return nil
}
