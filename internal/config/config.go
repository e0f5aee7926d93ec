// Package config loads godotdts settings from godotdts.toml, GODOTDTS_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"godotdts/internal/errors"
	"godotdts/internal/metadata"
	"godotdts/internal/render"
	"godotdts/internal/watch"
)

const (
	FileName  = "godotdts.toml"
	EnvPrefix = "GODOTDTS"
)

type Config struct {
	API               string         `mapstructure:"api"`
	Docs              string         `mapstructure:"docs"`
	Output            string         `mapstructure:"output"`
	VersionDir        string         `mapstructure:"version_dir"`
	Workers           int            `mapstructure:"workers"`
	VirtualVisibility string         `mapstructure:"virtual_visibility"`
	NullableObjects   bool           `mapstructure:"nullable_objects"`
	Clean             bool           `mapstructure:"clean"`
	GoManifest        string         `mapstructure:"go_manifest"`
	GoPackage         string         `mapstructure:"go_package"`
	TypeOverrides     []TypeOverride `mapstructure:"type_overrides"`
	Log               LogConfig      `mapstructure:"log"`
	Fetch             FetchConfig    `mapstructure:"fetch"`
	Watch             WatchConfig    `mapstructure:"watch"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// TypeOverride forces the TypeScript spelling of one engine type. Overrides
// are an array of tables because viper lowercases map keys.
type TypeOverride struct {
	Engine     string `mapstructure:"engine"`
	TypeScript string `mapstructure:"typescript"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

type FetchConfig struct {
	Repository string        `mapstructure:"repository"`
	Ref        string        `mapstructure:"ref"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// SetDefaults configures the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api", "extension_api.json")
	v.SetDefault("docs", "")
	v.SetDefault("output", "types")
	v.SetDefault("version_dir", "")
	v.SetDefault("workers", 0) // GOMAXPROCS
	v.SetDefault("virtual_visibility", render.VisibilityProtected)
	v.SetDefault("nullable_objects", false)
	v.SetDefault("clean", false)
	v.SetDefault("go_manifest", "")
	v.SetDefault("go_package", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("fetch.repository", metadata.DefaultRepository)
	v.SetDefault("fetch.ref", "") // newest stable tag
	v.SetDefault("fetch.timeout", time.Minute)

	v.SetDefault("watch.debounce", watch.DefaultDebounce)
}

// New returns a viper instance with defaults and environment binding.
// GODOTDTS_FETCH_REF sets fetch.ref.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// ReadFile merges a config file into v. An empty path searches for
// godotdts.toml from the working directory upwards; finding none is not an
// error.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "get working directory")
		}
		if path = FindProjectConfig(wd); path == "" {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "read config file %s", path),
			"godotdts.toml must be valid TOML",
		)
	}
	return nil
}

// FindProjectConfig walks up from dir looking for godotdts.toml and returns
// its path, or "" when there is none.
func FindProjectConfig(dir string) string {
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		if cfg.File != "" {
			return nil, errors.Wrapf(err, "config %s", cfg.File)
		}
		return nil, err
	}
	return &cfg, nil
}

// Overrides returns the type overrides keyed by engine type.
func (c *Config) Overrides() map[string]string {
	if len(c.TypeOverrides) == 0 {
		return nil
	}
	overrides := make(map[string]string, len(c.TypeOverrides))
	for _, o := range c.TypeOverrides {
		overrides[o.Engine] = o.TypeScript
	}
	return overrides
}

// Validate checks the configuration for values no run could use.
func (c *Config) Validate() error {
	if c.API == "" {
		return errors.New("api cannot be empty")
	}
	if c.Output == "" {
		return errors.New("output cannot be empty")
	}
	if c.Workers < 0 {
		return errors.Newf("workers must be >= 0, got %d", c.Workers)
	}
	switch c.VirtualVisibility {
	case render.VisibilityProtected, render.VisibilityPrivate:
	default:
		return errors.Newf("virtual_visibility must be %q or %q, got %q",
			render.VisibilityProtected, render.VisibilityPrivate, c.VirtualVisibility)
	}
	if strings.ContainsAny(c.VersionDir, `/\`) || c.VersionDir == ".." {
		return errors.Newf("version_dir must be a single directory name, got %q", c.VersionDir)
	}

	seen := map[string]bool{}
	for i, o := range c.TypeOverrides {
		if o.Engine == "" || o.TypeScript == "" {
			return errors.Newf("type_overrides[%d] needs both engine and typescript", i)
		}
		if seen[o.Engine] {
			return errors.Newf("type_overrides: %s is overridden twice", o.Engine)
		}
		seen[o.Engine] = true
	}

	if c.Fetch.Repository == "" {
		return errors.New("fetch.repository cannot be empty")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.Newf("fetch.timeout must be > 0, got %s", c.Fetch.Timeout)
	}
	if c.Watch.Debounce < 0 {
		return errors.Newf("watch.debounce must be >= 0, got %s", c.Watch.Debounce)
	}
	return nil
}
