package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/duallife/internal/dist"
)

// ErrUnknownModule is returned by Lookup for names absent from the registry.
var ErrUnknownModule = errors.New("module not in registry")

// Registry is the read-only view of the module registry the reconciler and
// the crosscheck engine consume. The file-backed implementation lives in
// this package; tests use in-memory fakes.
type Registry interface {
	// Lookup returns the record for a module name. Names may be given in
	// distribution form (Foo-Bar); they are normalized to Foo::Bar.
	Lookup(name string) (*ModuleRecord, error)
	// CoreFiles returns the module's core-tree file list, sorted, with
	// directory entries expanded against the core root.
	CoreFiles(name string) ([]string, error)
	// DualLife enumerates all dual-life module names, sorted
	// case-insensitively.
	DualLife() []string
}

// ModuleRecord describes one dual-life unit as authored in the registry
// file. Records are read-only once loaded.
type ModuleRecord struct {
	Name         string            `yaml:"-"`
	DualLife     bool              `yaml:"dual_life"`
	Distribution dist.ID           `yaml:"distribution"`
	Excluded     []Exclusion       `yaml:"excluded"`
	Mapping      map[string]string `yaml:"mapping"`
	Files        []string          `yaml:"files"`
}

// Exclusion is either a literal path or a compiled pattern. Registry
// entries delimited by slashes ("/^xt\//") compile as regular expressions;
// everything else matches by string equality.
type Exclusion struct {
	raw string
	re  *regexp.Regexp
}

// Literal builds an exact-match exclusion.
func Literal(s string) Exclusion {
	return Exclusion{raw: s}
}

// Pattern builds a regexp exclusion. The expression must compile.
func Pattern(expr string) (Exclusion, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Exclusion{}, err
	}
	return Exclusion{raw: "/" + expr + "/", re: re}, nil
}

// Matches reports whether the exclusion applies to an archive path.
func (e Exclusion) Matches(path string) bool {
	if e.re != nil {
		return e.re.MatchString(path)
	}
	return e.raw == path
}

func (e Exclusion) String() string { return e.raw }

// UnmarshalYAML decodes an exclusion entry, compiling slash-delimited
// entries as patterns at load time so malformed expressions fail the load
// rather than a later match.
func (e *Exclusion) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		re, err := regexp.Compile(s[1 : len(s)-1])
		if err != nil {
			return fmt.Errorf("exclusion pattern %s: %w", s, err)
		}
		e.re = re
	}
	e.raw = s
	return nil
}

// FileRegistry is the YAML-file-backed Registry. The core root directory is
// only touched when expanding directory entries in a module's file list.
type FileRegistry struct {
	coreRoot string
	modules  map[string]*ModuleRecord
}

type registryFile struct {
	Modules map[string]*ModuleRecord `yaml:"modules"`
}

// Load reads a registry file and binds it to a core source tree root.
func Load(path, coreRoot string) (*FileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}
	for name, rec := range f.Modules {
		if rec == nil {
			rec = &ModuleRecord{}
			f.Modules[name] = rec
		}
		rec.Name = name
	}
	return &FileRegistry{coreRoot: coreRoot, modules: f.Modules}, nil
}

// NewInMemory builds a registry from already-constructed records, bound to
// coreRoot for file-list expansion.
func NewInMemory(coreRoot string, records ...*ModuleRecord) *FileRegistry {
	modules := make(map[string]*ModuleRecord, len(records))
	for _, rec := range records {
		modules[rec.Name] = rec
	}
	return &FileRegistry{coreRoot: coreRoot, modules: modules}
}

// Lookup finds a record by module name, accepting Foo-Bar for Foo::Bar.
func (r *FileRegistry) Lookup(name string) (*ModuleRecord, error) {
	if rec, ok := r.modules[name]; ok {
		return rec, nil
	}
	if alt := strings.ReplaceAll(name, "-", "::"); alt != name {
		if rec, ok := r.modules[alt]; ok {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
}

// CoreFiles expands a module's file list. Entries ending in "/" are
// directory prefixes walked under the core root; a missing directory
// expands to nothing (missing files are a reconciliation warning, not a
// registry failure). Other entries are taken verbatim.
func (r *FileRegistry) CoreFiles(name string) ([]string, error) {
	rec, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, entry := range rec.Files {
		if !strings.HasSuffix(entry, "/") {
			add(entry)
			continue
		}
		root := filepath.Join(r.coreRoot, filepath.FromSlash(entry))
		if _, statErr := os.Stat(root); statErr != nil {
			continue
		}
		walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(r.coreRoot, p)
			if err != nil {
				return err
			}
			add(filepath.ToSlash(rel))
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("expanding %s for %s: %w", entry, name, walkErr)
		}
	}

	sort.Strings(files)
	return files, nil
}

// DualLife enumerates all modules flagged dual-life, sorted
// case-insensitively by name.
func (r *FileRegistry) DualLife() []string {
	var names []string
	for name, rec := range r.modules {
		if rec.DualLife {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}
