package fetcher

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// extract unpacks an archive into destDir and returns the path of the
// top-level directory it created.
func extract(archivePath, destDir string, logger *log.Logger) (string, error) {
	switch {
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractTar(archivePath, destDir, logger, func(r io.Reader) (io.Reader, error) {
			gz, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			return gz, nil
		})
	case strings.HasSuffix(archivePath, ".tar.bz2"):
		return extractTar(archivePath, destDir, logger, func(r io.Reader) (io.Reader, error) {
			return bzip2.NewReader(r), nil
		})
	case strings.HasSuffix(archivePath, ".zip"):
		return extractZip(archivePath, destDir, logger)
	default:
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}
}

func extractTar(archivePath, destDir string, logger *log.Logger, decompress func(io.Reader) (io.Reader, error)) (string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	reader, err := decompress(file)
	if err != nil {
		return "", err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	tarReader := tar.NewReader(reader)
	var rootDir string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		// pax global headers carry no file content and must not count
		// as the archive's top-level directory.
		if header.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		target, err := safeTarget(destDir, header.Name)
		if err != nil {
			return "", err
		}
		if rootDir == "" {
			rootDir = topLevel(header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tarReader, os.FileMode(header.Mode)); err != nil {
				return "", err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(destDir, target, header.Name, header.Linkname, logger); err != nil {
				return "", err
			}
		case tar.TypeLink:
			if src, linkErr := safeTarget(destDir, header.Linkname); linkErr != nil {
				logger.Warn("skipping hard link escaping extraction directory",
					"entry", header.Name, "target", header.Linkname)
			} else if err := writeLink(src, target); err != nil {
				return "", err
			}
		default:
			logger.Warn("skipping unsupported archive entry",
				"entry", header.Name, "type", header.Typeflag)
		}
	}

	if rootDir == "" {
		return "", fmt.Errorf("empty archive: %s", filepath.Base(archivePath))
	}
	return filepath.Join(destDir, rootDir), nil
}

func extractZip(archivePath, destDir string, logger *log.Logger) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var rootDir string
	for _, entry := range reader.File {
		target, err := safeTarget(destDir, entry.Name)
		if err != nil {
			return "", err
		}
		if rootDir == "" {
			rootDir = topLevel(entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", err
			}
			continue
		}
		if entry.Mode()&os.ModeSymlink != 0 {
			rc, err := entry.Open()
			if err != nil {
				return "", err
			}
			linkname, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", err
			}
			if err := writeSymlink(destDir, target, entry.Name, string(linkname), logger); err != nil {
				return "", err
			}
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", err
		}
		err = writeEntry(target, rc, entry.Mode())
		rc.Close()
		if err != nil {
			return "", err
		}
	}

	if rootDir == "" {
		return "", fmt.Errorf("empty archive: %s", filepath.Base(archivePath))
	}
	return filepath.Join(destDir, rootDir), nil
}

func writeEntry(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeSymlink recreates a symlink entry. Links that point outside the
// extraction directory are skipped with a warning rather than failing the
// whole archive.
func writeSymlink(destDir, target, name, linkname string, logger *log.Logger) error {
	if filepath.IsAbs(linkname) {
		logger.Warn("skipping absolute symlink", "entry", name, "target", linkname)
		return nil
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !strings.HasPrefix(resolved, filepath.Clean(destDir)+string(os.PathSeparator)) {
		logger.Warn("skipping symlink escaping extraction directory",
			"entry", name, "target", linkname)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	os.Remove(target)
	return os.Symlink(filepath.FromSlash(linkname), target)
}

// writeLink recreates a hard link entry; the link target is named relative
// to the archive root and must already be extracted.
func writeLink(src, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	os.Remove(target)
	return os.Link(src, target)
}

// safeTarget joins an archive member path onto destDir, rejecting entries
// that would escape it.
func safeTarget(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes extraction directory: %s", name)
	}
	return target, nil
}

func topLevel(name string) string {
	parts := strings.SplitN(strings.TrimPrefix(name, "./"), "/", 2)
	return parts[0]
}
