// Package config supplies defaults for the CLI flags, overridable through
// DUALLIFE_* environment variables. Flags always win over both.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// DefaultMirror is the package archive mirror used unless overridden.
const DefaultMirror = "https://cpan.metacpan.org"

// Config holds the resolvable defaults.
type Config struct {
	Mirror   string `mapstructure:"mirror"`
	CacheDir string `mapstructure:"cachedir"`
	Registry string `mapstructure:"registry"`
	CoreRoot string `mapstructure:"coreroot"`
	FetchCmd string `mapstructure:"fetch_cmd"`
}

// Load resolves defaults and environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("mirror", DefaultMirror)
	v.SetDefault("cachedir", "")
	v.SetDefault("registry", "duallife.yml")
	v.SetDefault("coreroot", ".")
	v.SetDefault("fetch_cmd", "")

	v.SetEnvPrefix("duallife")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
