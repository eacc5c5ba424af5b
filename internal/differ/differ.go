// Package differ is the line-diff capability used in --diff mode. The
// default strategy renders unified diffs in-process; unrecognized diff
// options fall through to an external diff command.
package differ

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Differ produces a textual diff of two files. The first path is the "old"
// side; callers handle direction swapping.
type Differ interface {
	Diff(oldPath, newPath string) (string, error)
}

// DefaultOptions is the diff option string used when none is given.
const DefaultOptions = "-u"

var unifiedOptRe = regexp.MustCompile(`^-[uU](\d*)$`)

// ForOptions picks a strategy for a diff option string: plain unified
// options stay in-process, anything else shells out to diff(1).
func ForOptions(opts string) Differ {
	fields := strings.Fields(opts)
	if len(fields) == 0 {
		return &Unified{Context: 3}
	}
	if len(fields) == 1 {
		if m := unifiedOptRe.FindStringSubmatch(fields[0]); m != nil {
			context := 3
			if m[1] != "" {
				context, _ = strconv.Atoi(m[1])
			}
			return &Unified{Context: context}
		}
	}
	return &Command{Name: "diff", Options: fields}
}

// Unified renders unified diffs with go-difflib.
type Unified struct {
	Context int
}

func (u *Unified) Diff(oldPath, newPath string) (string, error) {
	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", oldPath, err)
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", newPath, err)
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: oldPath,
		ToFile:   newPath,
		Context:  u.Context,
	})
	if err != nil {
		return "", fmt.Errorf("diffing %s: %w", oldPath, err)
	}
	return text, nil
}

// Command invokes an external diff program with the forwarded options.
type Command struct {
	Name    string
	Options []string
}

func (c *Command) Diff(oldPath, newPath string) (string, error) {
	args := append(append([]string{}, c.Options...), oldPath, newPath)
	out, err := exec.Command(c.Name, args...).Output()
	if err != nil {
		// diff exits 1 when the files differ; only >1 is a failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return string(out), nil
		}
		return "", fmt.Errorf("running %s: %w", c.Name, err)
	}
	return string(out), nil
}
