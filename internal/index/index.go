// Package index loads the package archive's flat module index
// (02packages.details.txt): a header block terminated by the first blank
// line, then one three-column record per line.
package index

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/frederic-klein/duallife/internal/dist"
)

const indexPath = "modules/02packages.details.txt"

// WarnFunc receives one formatted warning per recoverable parse problem.
type WarnFunc func(format string, args ...any)

// Index maps module names and distribution base names to currently
// published distribution paths. Read-only after Load.
type Index struct {
	mirror    string
	cacheFile string
	warn      WarnFunc

	exact  map[string]string
	byBase map[string][]string
}

// Option configures an Index.
type Option func(*Index)

// WithWarnFunc routes malformed-line warnings somewhere other than the
// default sink (discard).
func WithWarnFunc(warn WarnFunc) Option {
	return func(idx *Index) { idx.warn = warn }
}

// New creates an index backed by a mirror and a cache directory.
func New(mirror, cacheDir string, opts ...Option) *Index {
	idx := &Index{
		mirror:    strings.TrimSuffix(mirror, "/"),
		cacheFile: filepath.Join(cacheDir, filepath.Base(indexPath)),
		warn:      func(string, ...any) {},
		exact:     make(map[string]string),
		byBase:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Load ensures a local copy of the index exists (downloading and
// decompressing it when missing, or unconditionally when force is set) and
// parses it.
func (idx *Index) Load(force bool) error {
	if _, err := os.Stat(idx.cacheFile); err != nil || force {
		if err := idx.download(); err != nil {
			return err
		}
	}
	return idx.parse()
}

func (idx *Index) download() error {
	if err := os.MkdirAll(filepath.Dir(idx.cacheFile), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	url := fmt.Sprintf("%s/%s.gz", idx.mirror, indexPath)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("downloading index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading index: HTTP %d", resp.StatusCode)
	}

	gzReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("decompressing index: %w", err)
	}
	defer gzReader.Close()

	outFile, err := os.Create(idx.cacheFile)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, gzReader); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

func (idx *Index) parse() error {
	file, err := os.Open(idx.cacheFile)
	if err != nil {
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer file.Close()
	return idx.parseFrom(file)
}

func (idx *Index) parseFrom(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	inHeader := true

	for scanner.Scan() {
		line := scanner.Text()

		// Skip header until empty line
		if inHeader {
			if strings.TrimSpace(line) == "" {
				inHeader = false
			}
			continue
		}
		// Parse: Module::Name \t version \t A/AU/AUTHOR/Dist.tar.gz
		fields := strings.Fields(line)
		if len(fields) != 3 {
			idx.warn("malformed index line (%d fields): %s", len(fields), line)
			continue
		}

		module := fields[0]
		path := dist.StripAuthorPrefix(fields[2])

		idx.exact[module] = path
		base := dist.BaseName(path)
		if !contains(idx.byBase[base], path) {
			idx.byBase[base] = append(idx.byBase[base], path)
		}
	}

	return scanner.Err()
}

// Lookup finds the published distribution path for an exact module name.
// Paths have the two-level author directory prefix already stripped.
func (idx *Index) Lookup(module string) (string, bool) {
	path, ok := idx.exact[module]
	return path, ok
}

// LookupBase returns all published distribution paths sharing a base name,
// sorted. More than one entry means the match is ambiguous.
func (idx *Index) LookupBase(base string) []string {
	paths := append([]string(nil), idx.byBase[base]...)
	sort.Strings(paths)
	return paths
}

func contains(paths []string, p string) bool {
	for _, have := range paths {
		if have == p {
			return true
		}
	}
	return false
}
