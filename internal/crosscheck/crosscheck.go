// Package crosscheck verifies, without downloading archives, that the
// distribution recorded in the registry for each module is still the one
// the package index currently publishes.
package crosscheck

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/duallife/internal/dist"
	"github.com/frederic-klein/duallife/internal/registry"
	"github.com/frederic-klein/duallife/internal/report"
)

// Index is the parsed package index: exact module lookup plus fuzzy
// base-name lookup.
type Index interface {
	Lookup(module string) (string, bool)
	LookupBase(base string) []string
}

// Engine runs the crosscheck over a module list.
type Engine struct {
	registry registry.Registry
	index    Index
	report   *report.Report
	logger   *log.Logger
}

// New creates an Engine.
func New(reg registry.Registry, idx Index, rep *report.Report, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{registry: reg, index: idx, report: rep, logger: logger}
}

// Run checks every requested module. Registry-integrity problems (unknown
// module, dual-life module without a distribution id) abort the whole run;
// unresolvable or ambiguous index matches are report lines only.
func (e *Engine) Run(names []string) error {
	for _, name := range names {
		if err := e.checkOne(name); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkOne(name string) error {
	rec, err := e.registry.Lookup(name)
	if err != nil {
		e.report.Errorf("%v", err)
		return err
	}
	if !rec.DualLife {
		e.report.Printf("Not dual-life; skipped: %s", rec.Name)
		return nil
	}
	if rec.Distribution == "" {
		// Missing id in crosscheck mode is a registry authoring mistake;
		// stop the run rather than guessing.
		e.report.Errorf("%s has no distribution recorded", rec.Name)
		return fmt.Errorf("registry integrity: %s has no distribution recorded", rec.Name)
	}

	recorded := string(rec.Distribution)
	e.logger.Debug("crosschecking", "module", rec.Name, "recorded", recorded)

	current, ok := e.index.Lookup(rec.Name)
	if !ok {
		base := dist.BaseName(recorded)
		candidates := e.index.LookupBase(base)
		switch len(candidates) {
		case 0:
			e.report.Printf("Cannot determine current distribution for %s (base %s)", rec.Name, base)
			return nil
		case 1:
			current = candidates[0]
		default:
			e.report.Printf("Ambiguous: %s (base %s) matches %s", rec.Name, base, strings.Join(candidates, ", "))
			return nil
		}
	}

	if current != recorded {
		e.report.Printf("%s: registry has %s, index has %s", rec.Name, recorded, current)
	}
	return nil
}
