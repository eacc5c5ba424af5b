package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerboseGating(t *testing.T) {
	quiet := &bytes.Buffer{}
	New(quiet, false, false).Unchanged("a")
	New(quiet, false, false).Excluded("b")
	New(quiet, false, false).Ignored("c")
	assert.Empty(t, quiet.String())

	chatty := &bytes.Buffer{}
	r := New(chatty, true, false)
	r.Unchanged("a")
	r.Excluded("b")
	r.Ignored("c")
	assert.Equal(t, "Unchanged: a\nExcluded: b\nIgnored: c\n", chatty.String())
}

func TestDiffOnlySuppressesClassifications(t *testing.T) {
	out := &bytes.Buffer{}
	r := New(out, true, true)
	r.Modified("a", "b")
	r.ArchiveOnly("a")
	r.CoreOnly("b")
	r.PackedAdvisory("x", "x.packed")
	r.Unchanged("a")
	assert.Empty(t, out.String())

	r.Diff("--- a\n+++ b\n")
	r.Warningf("still shown")
	assert.Contains(t, out.String(), "+++ b")
	assert.Contains(t, out.String(), "WARNING: still shown")
}

func TestModifiedPathForms(t *testing.T) {
	out := &bytes.Buffer{}
	r := New(out, false, false)
	r.Modified("lib/Foo.pm", "lib/Foo.pm")
	r.Modified("Bar.pm", "ext/Foo-Bar/Bar.pm")
	assert.Equal(t,
		"Modified: lib/Foo.pm\nModified: Bar.pm (core: ext/Foo-Bar/Bar.pm)\n",
		out.String())
}
