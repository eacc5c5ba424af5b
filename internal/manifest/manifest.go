// Package manifest reads distribution MANIFEST files: one archive-relative
// path per line, optionally followed by whitespace-separated metadata that
// is ignored.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse returns the manifest's paths in file order. Blank lines and
// comment lines are skipped. Entries are not deduplicated; the reconciler's
// seen-bookkeeping handles repeats.
func Parse(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			paths = append(paths, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return paths, nil
}

// ReadFile parses the manifest at path.
func ReadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer file.Close()
	return Parse(file)
}
