package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
)

const extractSubdir = "extracted"

// Workspace holds the run's archive cache and extraction directories.
// A cache workspace persists archives between runs; a temp workspace is
// removed wholesale by Close.
type Workspace struct {
	archiveDir string
	extractDir string
	tempRoot   string
}

// NewCacheWorkspace uses an existing cache directory. The extraction
// subdirectory is wiped up front so stale files from earlier runs cannot
// leak into this one.
func NewCacheWorkspace(cacheDir string) (*Workspace, error) {
	info, err := os.Stat(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("cache directory %s: %w", cacheDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cache directory %s: not a directory", cacheDir)
	}

	extractDir := filepath.Join(cacheDir, extractSubdir)
	if err := os.RemoveAll(extractDir); err != nil {
		return nil, fmt.Errorf("clearing extraction directory: %w", err)
	}
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}
	return &Workspace{archiveDir: cacheDir, extractDir: extractDir}, nil
}

// NewTempWorkspace creates a throwaway workspace for one run.
func NewTempWorkspace() (*Workspace, error) {
	root, err := os.MkdirTemp("", "duallife-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp workspace: %w", err)
	}
	extractDir := filepath.Join(root, extractSubdir)
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}
	return &Workspace{archiveDir: root, extractDir: extractDir, tempRoot: root}, nil
}

// ArchiveDir is where downloaded archives live, keyed by filename.
func (w *Workspace) ArchiveDir() string { return w.archiveDir }

// ExtractDir is the run's extraction area.
func (w *Workspace) ExtractDir() string { return w.extractDir }

// Close removes a temp workspace; for a cache workspace it is a no-op so
// downloaded archives survive for the next run.
func (w *Workspace) Close() error {
	if w.tempRoot == "" {
		return nil
	}
	return os.RemoveAll(w.tempRoot)
}
