// Package reconcile drives one module's archive-vs-core comparison: it
// classifies every manifest entry through the path mapper, compares byte
// content for matched pairs, and reports the result.
package reconcile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/duallife/internal/differ"
	"github.com/frederic-klein/duallife/internal/dist"
	"github.com/frederic-klein/duallife/internal/manifest"
	"github.com/frederic-klein/duallife/internal/mapper"
	"github.com/frederic-klein/duallife/internal/registry"
	"github.com/frederic-klein/duallife/internal/report"
)

// PackedSuffix marks core files stored in pre-processed form; a build step
// expands them into the comparable file.
const PackedSuffix = ".packed"

// manifestName is the required manifest file at the extracted archive root.
const manifestName = "MANIFEST"

var (
	// ErrNotDualLife marks modules the archive does not mirror.
	ErrNotDualLife = errors.New("not a dual-life module")
	// ErrMissingDistribution marks a dual-life record without a
	// distribution id.
	ErrMissingDistribution = errors.New("no distribution recorded")
	// ErrFetch marks download or extraction failures; the batch continues
	// past them.
	ErrFetch = errors.New("fetch failed")
	// ErrMissingManifest marks an extracted archive without a MANIFEST.
	ErrMissingManifest = errors.New("archive manifest missing")
)

// auxiliaryFiles are common distribution housekeeping files that have no
// core-tree counterpart and are not worth an "archive only" line.
var auxiliaryFiles = map[string]bool{
	"README": true, "README.md": true,
	"Changes": true, "ChangeLog": true, "CHANGES": true,
	"LICENSE": true, "LICENCE": true, "COPYING": true, "COPYRIGHT": true,
	"INSTALL": true, "TODO": true, "SIGNATURE": true,
	"MANIFEST": true, "MANIFEST.SKIP": true,
	"META.json": true, "META.yml": true, "MYMETA.json": true, "MYMETA.yml": true,
	"Makefile.PL": true, "Build.PL": true,
	"dist.ini": true, "cpanfile": true,
	".gitignore": true, ".travis.yml": true,
}

// Fetcher resolves a distribution id to its extracted directory.
type Fetcher interface {
	Fetch(id dist.ID) (string, error)
}

// Match is one archive/core file pair.
type Match struct {
	ArchivePath string
	CorePath    string
	Changed     bool
}

// Result is the per-module classification. Computed fresh per call,
// discarded after reporting.
type Result struct {
	Matched     []Match
	ArchiveOnly []string
	CoreOnly    []string
	Excluded    []string
	Ignored     []string
}

// Reconciler compares modules one at a time. The duplicate-distribution
// detector is the only state shared across modules in a run.
type Reconciler struct {
	registry registry.Registry
	fetcher  Fetcher
	report   *report.Report
	differ   differ.Differ
	coreRoot string
	reverse  bool
	logger   *log.Logger
	seenDist map[dist.ID]string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDiffer switches matched-but-modified reporting to literal diffs.
func WithDiffer(d differ.Differ) Option {
	return func(r *Reconciler) { r.differ = d }
}

// WithReverse swaps the diff direction.
func WithReverse(reverse bool) Option {
	return func(r *Reconciler) { r.reverse = reverse }
}

// WithCoreRoot sets the core source tree root (default ".").
func WithCoreRoot(root string) Option {
	return func(r *Reconciler) { r.coreRoot = root }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New creates a Reconciler.
func New(reg registry.Registry, f Fetcher, rep *report.Report, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry: reg,
		fetcher:  f,
		report:   rep,
		coreRoot: ".",
		logger:   log.Default(),
		seenDist: make(map[dist.ID]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles modules in order. A fetch failure or a skipped module
// never aborts the batch; registry-integrity problems do.
func (r *Reconciler) Run(names []string) error {
	for _, name := range names {
		_, err := r.Reconcile(name)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotDualLife),
			errors.Is(err, ErrFetch),
			errors.Is(err, ErrMissingManifest):
			// already in the report; move on
		default:
			return err
		}
	}
	return nil
}

// Reconcile compares one module and writes its report section.
func (r *Reconciler) Reconcile(name string) (*Result, error) {
	rec, err := r.registry.Lookup(name)
	if err != nil {
		r.report.Errorf("%v", err)
		return nil, err
	}

	r.report.Module(rec.Name)

	if !rec.DualLife {
		r.report.Printf("Not dual-life; skipped")
		return nil, fmt.Errorf("%s: %w", rec.Name, ErrNotDualLife)
	}
	if rec.Distribution == "" {
		r.report.Errorf("%s: %v", rec.Name, ErrMissingDistribution)
		return nil, fmt.Errorf("%s: %w", rec.Name, ErrMissingDistribution)
	}

	if prev, dup := r.seenDist[rec.Distribution]; dup {
		r.report.Warningf("distribution %s already processed for %s", rec.Distribution, prev)
	} else {
		r.seenDist[rec.Distribution] = rec.Name
	}

	r.logger.Info("reconciling", "module", rec.Name, "distribution", rec.Distribution)

	root, err := r.fetcher.Fetch(rec.Distribution)
	if err != nil {
		r.report.Errorf("%s: %v", rec.Name, err)
		return nil, fmt.Errorf("%s: %w: %v", rec.Name, ErrFetch, err)
	}

	entries, err := manifest.ReadFile(filepath.Join(root, manifestName))
	if err != nil {
		r.report.Warningf("%s: %v", rec.Name, ErrMissingManifest)
		return nil, fmt.Errorf("%s: %w", rec.Name, ErrMissingManifest)
	}

	coreFiles, err := r.registry.CoreFiles(rec.Name)
	if err != nil {
		r.report.Errorf("%s: %v", rec.Name, err)
		return nil, err
	}

	return r.classify(rec, root, entries, coreFiles), nil
}

func (r *Reconciler) classify(rec *registry.ModuleRecord, root string, entries, coreFiles []string) *Result {
	rules := rec.Rules(coreFiles)

	coreSet := make(map[string]bool, len(coreFiles))
	for _, f := range coreFiles {
		coreSet[f] = true
	}
	seen := make(map[string]bool)

	result := &Result{}
	for _, entry := range entries {
		mapped, excluded := mapper.Map(rec.Excluded, rules, entry)
		switch {
		case excluded:
			result.Excluded = append(result.Excluded, entry)
			r.report.Excluded(entry)

		case coreSet[mapped]:
			seen[mapped] = true
			result.Matched = append(result.Matched, r.compare(root, entry, mapped))

		case coreSet[mapped+PackedSuffix]:
			seen[mapped+PackedSuffix] = true
			result.Matched = append(result.Matched, r.comparePacked(root, entry, mapped))

		case auxiliaryFiles[path.Base(entry)]:
			result.Ignored = append(result.Ignored, entry)
			r.report.Ignored(entry)

		default:
			result.ArchiveOnly = append(result.ArchiveOnly, entry)
			r.report.ArchiveOnly(entry)
		}
	}

	for _, f := range coreFiles {
		if !seen[f] {
			result.CoreOnly = append(result.CoreOnly, f)
			r.report.CoreOnly(f)
			if _, err := os.Stat(filepath.Join(r.coreRoot, filepath.FromSlash(f))); err != nil {
				r.report.Warningf("core file missing on disk: %s", f)
			}
		}
	}

	return result
}

// compare byte-compares one matched pair and reports it.
func (r *Reconciler) compare(root, entry, mapped string) Match {
	match := Match{ArchivePath: entry, CorePath: mapped}
	archivePath := filepath.Join(root, filepath.FromSlash(entry))
	corePath := filepath.Join(r.coreRoot, filepath.FromSlash(mapped))

	archiveData, err := os.ReadFile(archivePath)
	if err != nil {
		r.report.Warningf("archive file unreadable: %s: %v", entry, err)
		return match
	}
	coreData, err := os.ReadFile(corePath)
	if err != nil {
		r.report.Warningf("core file missing: %s", mapped)
		return match
	}

	if bytes.Equal(archiveData, coreData) {
		r.report.Unchanged(entry)
		return match
	}

	match.Changed = true
	if r.differ != nil {
		from, to := corePath, archivePath
		if r.reverse {
			from, to = to, from
		}
		text, err := r.differ.Diff(from, to)
		if err != nil {
			r.report.Warningf("diffing %s: %v", entry, err)
			return match
		}
		r.report.Diff(text)
		return match
	}
	r.report.Modified(entry, mapped)
	return match
}

// comparePacked handles the packed-file convention: the core tree carries
// mapped+PackedSuffix and a build step materializes the unpacked form. The
// pair counts as matched either way.
func (r *Reconciler) comparePacked(root, entry, mapped string) Match {
	corePath := filepath.Join(r.coreRoot, filepath.FromSlash(mapped))
	packedPath := filepath.Join(r.coreRoot, filepath.FromSlash(mapped+PackedSuffix))

	_, unpackedErr := os.Stat(corePath)
	_, packedErr := os.Stat(packedPath)
	if unpackedErr != nil && packedErr == nil {
		r.report.PackedAdvisory(mapped, mapped+PackedSuffix)
		return Match{ArchivePath: entry, CorePath: mapped + PackedSuffix}
	}
	if unpackedErr != nil {
		r.report.Warningf("core file missing: %s", mapped+PackedSuffix)
		return Match{ArchivePath: entry, CorePath: mapped + PackedSuffix}
	}
	return r.compare(root, entry, mapped)
}
