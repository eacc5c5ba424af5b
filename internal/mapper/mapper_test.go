package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/duallife/internal/registry"
)

func TestMap_LongestPrefixWins(t *testing.T) {
	rules := map[string]string{
		"lib/": "lib/",
		"":     "lib/Foo/Bar/",
	}

	mapped, excluded := Map(nil, rules, "lib/Foo.pm")
	assert.False(t, excluded)
	assert.Equal(t, "lib/Foo.pm", mapped)

	mapped, excluded = Map(nil, rules, "t/basic.t")
	assert.False(t, excluded)
	assert.Equal(t, "lib/Foo/Bar/t/basic.t", mapped)
}

func TestMap_SelectionIgnoresNonMatchingRules(t *testing.T) {
	// Distinct equal-length prefixes can never both match one path, so
	// rule selection reduces to longest-matching-prefix; same-length
	// non-matching keys must not influence the result.
	rules := map[string]string{
		"a/": "X/",
		"b/": "Y/",
		"":   "Z/",
	}
	mapped, _ := Map(nil, rules, "a/file")
	assert.Equal(t, "X/file", mapped)

	mapped, _ = Map(nil, rules, "b/file")
	assert.Equal(t, "Y/file", mapped)

	mapped, _ = Map(nil, rules, "c/file")
	assert.Equal(t, "Z/c/file", mapped)
}

func TestMap_NoMatchingPrefixIsIdentity(t *testing.T) {
	rules := map[string]string{"lib/": "lib/"}
	mapped, excluded := Map(nil, rules, "t/basic.t")
	assert.False(t, excluded)
	assert.Equal(t, "t/basic.t", mapped)
}

func TestMap_EmptyPrefixIsUsedWhenDeclared(t *testing.T) {
	rules := map[string]string{"": "ext/Foo-Bar/"}
	mapped, _ := Map(nil, rules, "lib/Foo.pm")
	assert.Equal(t, "ext/Foo-Bar/lib/Foo.pm", mapped)
}

func TestMap_ExclusionTakesPrecedence(t *testing.T) {
	pattern, err := registry.Pattern(`^xt/`)
	require.NoError(t, err)
	excl := []registry.Exclusion{
		registry.Literal("t/private.t"),
		pattern,
	}
	rules := map[string]string{"": "lib/Foo/"}

	_, excluded := Map(excl, rules, "t/private.t")
	assert.True(t, excluded)

	_, excluded = Map(excl, rules, "xt/author.t")
	assert.True(t, excluded)

	mapped, excluded := Map(excl, rules, "t/public.t")
	assert.False(t, excluded)
	assert.Equal(t, "lib/Foo/t/public.t", mapped)
}

func TestMap_IsDeterministic(t *testing.T) {
	rules := map[string]string{
		"lib/": "lib/",
		"t/":   "t/foo/",
		"":     "lib/Foo/",
	}
	excl := []registry.Exclusion{registry.Literal("skip")}

	inputs := []string{"lib/Foo.pm", "t/one.t", "README", "skip"}
	for _, in := range inputs {
		first, firstExcl := Map(excl, rules, in)
		for i := 0; i < 10; i++ {
			again, againExcl := Map(excl, rules, in)
			require.Equal(t, first, again)
			require.Equal(t, firstExcl, againExcl)
		}
	}
}
