// Package report renders the human-readable reconciliation report.
// Recoverable problems become WARNING:/ERROR: lines here; they never
// change the process exit status.
package report

import (
	"fmt"
	"io"
)

// Report writes classification and severity lines to one destination.
// Verbose enables the normally-suppressed Unchanged/Excluded/Ignored
// lines; DiffOnly (active with --diff) suppresses non-diff classification
// output.
type Report struct {
	w        io.Writer
	verbose  bool
	diffOnly bool
}

// New creates a report writer.
func New(w io.Writer, verbose, diffOnly bool) *Report {
	return &Report{w: w, verbose: verbose, diffOnly: diffOnly}
}

// Module emits the per-module header line.
func (r *Report) Module(name string) {
	fmt.Fprintf(r.w, "\n%s:\n", name)
}

// Printf emits an unconditional report line.
func (r *Report) Printf(format string, args ...any) {
	fmt.Fprintf(r.w, format+"\n", args...)
}

// Warningf emits a WARNING: line.
func (r *Report) Warningf(format string, args ...any) {
	fmt.Fprintf(r.w, "WARNING: "+format+"\n", args...)
}

// Errorf emits an ERROR: line. Errors here are report data; the run
// continues.
func (r *Report) Errorf(format string, args ...any) {
	fmt.Fprintf(r.w, "ERROR: "+format+"\n", args...)
}

// Modified reports a content difference. Both paths are shown when the
// mapping changed the name.
func (r *Report) Modified(archivePath, corePath string) {
	if r.diffOnly {
		return
	}
	if archivePath == corePath {
		fmt.Fprintf(r.w, "Modified: %s\n", archivePath)
		return
	}
	fmt.Fprintf(r.w, "Modified: %s (core: %s)\n", archivePath, corePath)
}

// Diff emits a literal diff text block.
func (r *Report) Diff(text string) {
	io.WriteString(r.w, text)
}

// Unchanged reports an identical file pair (verbose only).
func (r *Report) Unchanged(path string) {
	if r.verbose && !r.diffOnly {
		fmt.Fprintf(r.w, "Unchanged: %s\n", path)
	}
}

// Excluded reports a path suppressed by the registry (verbose only).
func (r *Report) Excluded(path string) {
	if r.verbose && !r.diffOnly {
		fmt.Fprintf(r.w, "Excluded: %s\n", path)
	}
}

// Ignored reports an auxiliary archive file (verbose only).
func (r *Report) Ignored(path string) {
	if r.verbose && !r.diffOnly {
		fmt.Fprintf(r.w, "Ignored: %s\n", path)
	}
}

// ArchiveOnly reports a file present only in the archive.
func (r *Report) ArchiveOnly(path string) {
	if !r.diffOnly {
		fmt.Fprintf(r.w, "Archive only: %s\n", path)
	}
}

// CoreOnly reports a core-tree file the archive does not carry.
func (r *Report) CoreOnly(path string) {
	if !r.diffOnly {
		fmt.Fprintf(r.w, "Core only: %s\n", path)
	}
}

// PackedAdvisory notes that only the packed form of a core file exists and
// a build step is needed to materialize the comparable file.
func (r *Report) PackedAdvisory(corePath, packedPath string) {
	if !r.diffOnly {
		fmt.Fprintf(r.w, "Run a build step to unpack %s into %s before comparing\n", packedPath, corePath)
	}
}
