// Package mapper translates archive-relative file paths into the core-tree
// paths they are mirrored at. This is the reconciliation core: everything
// the reconciler classifies goes through Map exactly once per archive file,
// and Map is a pure function of its inputs.
package mapper

import (
	"github.com/frederic-klein/duallife/internal/registry"
)

// Map translates an archive path, or reports that it is excluded.
//
// Exclusions are checked first, in registry order; any match wins. The
// rewrite then picks, among all rule prefixes the path starts with, the
// longest one, breaking length ties by the lexicographically smallest
// prefix. The matched prefix is replaced once at the start of the path.
// When no prefix matches (a partial rule table without a catch-all empty
// prefix) the path is passed through unchanged; the registry format allows
// such tables and relies on this fallback.
func Map(excluded []registry.Exclusion, rules map[string]string, archivePath string) (mapped string, isExcluded bool) {
	for _, excl := range excluded {
		if excl.Matches(archivePath) {
			return "", true
		}
	}

	prefix, replacement, found := bestRule(rules, archivePath)
	if !found {
		return archivePath, false
	}
	return replacement + archivePath[len(prefix):], false
}

func bestRule(rules map[string]string, path string) (prefix, replacement string, found bool) {
	for k, v := range rules {
		if len(path) < len(k) || path[:len(k)] != k {
			continue
		}
		if !found || len(k) > len(prefix) || (len(k) == len(prefix) && k < prefix) {
			prefix, replacement, found = k, v, true
		}
	}
	return prefix, replacement, found
}
