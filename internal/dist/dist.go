package dist

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ID is a distribution identifier in registry form: "AUTHOR/Filename-1.23.tar.gz".
type ID string

// archiveExtensions lists the suffixes the fetcher knows how to extract,
// longest first so TrimExtension strips ".tar.gz" before ".gz" ever matters.
var archiveExtensions = []string{".tar.gz", ".tar.bz2", ".tgz", ".zip"}

var (
	authorPrefixRe = regexp.MustCompile(`^[A-Z]/[A-Z][A-Z]/`)
	versionTailRe  = regexp.MustCompile(`-v?\d[\d._]*(?:-TRIAL\d*)?$`)
)

// Split breaks an ID into its author and archive filename parts.
func (id ID) Split() (author, filename string, err error) {
	parts := strings.SplitN(string(id), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[1], "/") {
		return "", "", fmt.Errorf("malformed distribution id %q (want AUTHOR/filename)", string(id))
	}
	return parts[0], parts[1], nil
}

// Filename returns the archive filename component of the ID.
func (id ID) Filename() string {
	return path.Base(string(id))
}

// URLPath expands the ID into the mirror-relative download path, inserting
// the conventional A/AU/AUTHOR directory levels.
func (id ID) URLPath() (string, error) {
	author, filename, err := id.Split()
	if err != nil {
		return "", err
	}
	if len(author) < 2 {
		return "", fmt.Errorf("author %q too short for an authors/id path", author)
	}
	return path.Join("authors/id", author[:1], author[:2], author, filename), nil
}

// ExtractedDir returns the conventional top-level directory name of the
// extracted archive: the filename with its archive extension removed.
func (id ID) ExtractedDir() string {
	return TrimExtension(id.Filename())
}

// TrimExtension strips a known archive extension from a filename.
// Unknown extensions are left alone.
func TrimExtension(name string) string {
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// StripAuthorPrefix removes the leading two expansion levels from an index
// path: "H/HA/HAARG/Moo-2.0.tar.gz" -> "HAARG/Moo-2.0.tar.gz". Paths
// without that shape are returned unchanged.
func StripAuthorPrefix(p string) string {
	return authorPrefixRe.ReplaceAllString(p, "")
}

// BaseName derives the version-independent distribution name from an index
// path or registry id: "H/HA/HAARG/Moo-2.005005.tar.gz" -> "Moo".
func BaseName(p string) string {
	base := TrimExtension(path.Base(p))
	return versionTailRe.ReplaceAllString(base, "")
}
