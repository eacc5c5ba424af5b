package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultMirror, cfg.Mirror)
	assert.Equal(t, "duallife.yml", cfg.Registry)
	assert.Equal(t, ".", cfg.CoreRoot)
	assert.Empty(t, cfg.CacheDir)
	assert.Empty(t, cfg.FetchCmd)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DUALLIFE_MIRROR", "https://mirror.example")
	t.Setenv("DUALLIFE_CACHEDIR", "/var/cache/duallife")
	t.Setenv("DUALLIFE_FETCH_CMD", "curl")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example", cfg.Mirror)
	assert.Equal(t, "/var/cache/duallife", cfg.CacheDir)
	assert.Equal(t, "curl", cfg.FetchCmd)
}
