package index

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `File:         02packages.details.txt
URL:          http://www.perl.com/CPAN/modules/02packages.details.txt
Description:  Package names found in directory

JSON	2.97001	M/MA/MAKAMAKA/JSON-2.97001.tar.gz
Moo	2.005005	H/HA/HAARG/Moo-2.005005.tar.gz
broken line with	too many	fields	here
Other::Moo	1.0	O/OT/OTHER/Moo-1.0.tar.gz

short
`

func writeCache(t *testing.T, content string) string {
	t.Helper()
	cacheDir := t.TempDir()
	cacheFile := filepath.Join(cacheDir, "02packages.details.txt")
	require.NoError(t, os.WriteFile(cacheFile, []byte(content), 0644))
	return cacheDir
}

func TestLoad_ParsesAndSkipsMalformedLines(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	idx := New("https://cpan.metacpan.org", writeCache(t, sampleIndex), WithWarnFunc(warn))
	require.NoError(t, idx.Load(false))

	path, ok := idx.Lookup("JSON")
	require.True(t, ok)
	assert.Equal(t, "MAKAMAKA/JSON-2.97001.tar.gz", path)

	_, ok = idx.Lookup("NonExistent")
	assert.False(t, ok)

	// Three malformed lines, each warned once: too many fields, a stray
	// blank line after the header, and too few fields.
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[1], "0 fields")
}

func TestLoad_HeaderLinesAreNotRecords(t *testing.T) {
	idx := New("https://cpan.metacpan.org", writeCache(t, sampleIndex))
	require.NoError(t, idx.Load(false))

	_, ok := idx.Lookup("File:")
	assert.False(t, ok)
}

func TestLookupBase_Ambiguity(t *testing.T) {
	idx := New("https://cpan.metacpan.org", writeCache(t, sampleIndex))
	require.NoError(t, idx.Load(false))

	// Two authors publish a distribution with base name Moo.
	assert.Equal(t, []string{
		"HAARG/Moo-2.005005.tar.gz",
		"OTHER/Moo-1.0.tar.gz",
	}, idx.LookupBase("Moo"))

	assert.Equal(t, []string{"MAKAMAKA/JSON-2.97001.tar.gz"}, idx.LookupBase("JSON"))
	assert.Empty(t, idx.LookupBase("NoSuch"))
}

func TestLoad_DownloadsWhenMissingOrForced(t *testing.T) {
	var gzipped bytes.Buffer
	gw := gzip.NewWriter(&gzipped)
	gw.Write([]byte("File: 02packages\n\nJSON\t2.0\tM/MA/MAKAMAKA/JSON-2.0.tar.gz\n"))
	gw.Close()

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/modules/02packages.details.txt.gz" {
			hits++
			w.Write(gzipped.Bytes())
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cacheDir := t.TempDir()

	idx := New(server.URL, cacheDir)
	require.NoError(t, idx.Load(false))
	assert.Equal(t, 1, hits)

	path, ok := idx.Lookup("JSON")
	require.True(t, ok)
	assert.Equal(t, "MAKAMAKA/JSON-2.0.tar.gz", path)

	// Cached copy is reused unless forced.
	idx = New(server.URL, cacheDir)
	require.NoError(t, idx.Load(false))
	assert.Equal(t, 1, hits)

	idx = New(server.URL, cacheDir)
	require.NoError(t, idx.Load(true))
	assert.Equal(t, 2, hits)
}
