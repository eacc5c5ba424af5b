package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `
modules:
  Foo::Bar:
    dual_life: true
    distribution: AUTHOR/Foo-Bar-1.23.tar.gz
    excluded:
      - t/private.t
      - /^xt\//
    files:
      - lib/Foo/Bar.pm
      - t/foo-bar/
  Not::Mirrored:
    dual_life: false
  zeta::Module:
    dual_life: true
    distribution: OTHER/zeta-Module-0.1.tar.gz
    mapping:
      "lib/": "lib/"
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duallife.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Lookup(t *testing.T) {
	reg, err := Load(writeRegistry(t, sampleRegistry), t.TempDir())
	require.NoError(t, err)

	rec, err := reg.Lookup("Foo::Bar")
	require.NoError(t, err)
	assert.Equal(t, "Foo::Bar", rec.Name)
	assert.True(t, rec.DualLife)
	assert.Equal(t, "AUTHOR/Foo-Bar-1.23.tar.gz", string(rec.Distribution))
	require.Len(t, rec.Excluded, 2)
	assert.True(t, rec.Excluded[0].Matches("t/private.t"))
	assert.False(t, rec.Excluded[0].Matches("t/private.txt"))
	assert.True(t, rec.Excluded[1].Matches("xt/author.t"))

	_, err = reg.Lookup("No::Such")
	assert.ErrorIs(t, err, ErrUnknownModule)
}

func TestLookup_NormalizesDistributionForm(t *testing.T) {
	reg, err := Load(writeRegistry(t, sampleRegistry), t.TempDir())
	require.NoError(t, err)

	rec, err := reg.Lookup("Foo-Bar")
	require.NoError(t, err)
	assert.Equal(t, "Foo::Bar", rec.Name)
}

func TestLoad_BadExclusionPattern(t *testing.T) {
	content := `
modules:
  Foo:
    excluded:
      - /([/
`
	_, err := Load(writeRegistry(t, content), t.TempDir())
	require.Error(t, err)
}

func TestCoreFiles_ExpandsDirectories(t *testing.T) {
	coreRoot := t.TempDir()
	dir := filepath.Join(coreRoot, "t", "foo-bar")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.t"), []byte("ok"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.t"), []byte("ok"), 0644))

	reg, err := Load(writeRegistry(t, sampleRegistry), coreRoot)
	require.NoError(t, err)

	files, err := reg.CoreFiles("Foo::Bar")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"lib/Foo/Bar.pm",
		"t/foo-bar/basic.t",
		"t/foo-bar/nested/deep.t",
	}, files)
}

func TestCoreFiles_MissingDirectoryExpandsToNothing(t *testing.T) {
	reg, err := Load(writeRegistry(t, sampleRegistry), t.TempDir())
	require.NoError(t, err)

	files, err := reg.CoreFiles("Foo::Bar")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/Foo/Bar.pm"}, files)
}

func TestDualLife_SortedCaseInsensitively(t *testing.T) {
	reg, err := Load(writeRegistry(t, sampleRegistry), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"Foo::Bar", "zeta::Module"}, reg.DualLife())
}
