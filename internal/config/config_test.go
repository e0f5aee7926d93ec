package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "extension_api.json", cfg.API)
	assert.Equal(t, "types", cfg.Output)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "protected", cfg.VirtualVisibility)
	assert.Equal(t, "godotengine/godot-cpp", cfg.Fetch.Repository)
	assert.Equal(t, time.Minute, cfg.Fetch.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.File)
	assert.Nil(t, cfg.Overrides())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
api = "godot/extension_api.json"
docs = "godot/doc/classes"
output = "dist/types"
workers = 4
virtual_visibility = "private"
nullable_objects = true
go_manifest = "gen/manifest.go"

[[type_overrides]]
engine = "PackedByteArray"
typescript = "Uint8Array"

[[type_overrides]]
engine = "PackedFloat32Array"
typescript = "Float32Array"

[log]
level = "debug"

[fetch]
ref = "godot-4.3-stable"
timeout = "30s"

[watch]
debounce = "1s"
`)

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "godot/extension_api.json", cfg.API)
	assert.Equal(t, "godot/doc/classes", cfg.Docs)
	assert.Equal(t, "dist/types", cfg.Output)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "private", cfg.VirtualVisibility)
	assert.True(t, cfg.NullableObjects)
	assert.Equal(t, "gen/manifest.go", cfg.GoManifest)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "godot-4.3-stable", cfg.Fetch.Ref)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, map[string]string{
		"PackedByteArray":    "Uint8Array",
		"PackedFloat32Array": "Float32Array",
	}, cfg.Overrides())
}

func TestLoadEnvironment(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "output = \"from-file\"\n")
	t.Setenv("GODOTDTS_OUTPUT", "from-env")
	t.Setenv("GODOTDTS_FETCH_REF", "godot-4.2.2-stable")

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Output)
	assert.Equal(t, "godot-4.2.2-stable", cfg.Fetch.Ref)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	err := ReadFile(New(), filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	path := writeConfig(t, dir, "output = [unterminated\n")
	err = ReadFile(New(), path)
	assert.Error(t, err)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Empty(t, FindProjectConfig(nested))

	path := writeConfig(t, root, "")
	assert.Equal(t, path, FindProjectConfig(nested))
	assert.Equal(t, path, FindProjectConfig(root))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			API:               "extension_api.json",
			Output:            "types",
			VirtualVisibility: "protected",
			Fetch:             FetchConfig{Repository: "godotengine/godot-cpp", Timeout: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero workers means default", mutate: func(c *Config) { c.Workers = 0 }},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -1 }, wantErr: "workers must be >= 0"},
		{name: "empty api", mutate: func(c *Config) { c.API = "" }, wantErr: "api cannot be empty"},
		{name: "empty output", mutate: func(c *Config) { c.Output = "" }, wantErr: "output cannot be empty"},
		{name: "public virtuals", mutate: func(c *Config) { c.VirtualVisibility = "public" }, wantErr: "virtual_visibility"},
		{name: "nested version dir", mutate: func(c *Config) { c.VersionDir = "a/b" }, wantErr: "version_dir"},
		{
			name:    "incomplete override",
			mutate:  func(c *Config) { c.TypeOverrides = []TypeOverride{{Engine: "PackedByteArray"}} },
			wantErr: "type_overrides[0]",
		},
		{
			name: "duplicate override",
			mutate: func(c *Config) {
				c.TypeOverrides = []TypeOverride{
					{Engine: "PackedByteArray", TypeScript: "Uint8Array"},
					{Engine: "PackedByteArray", TypeScript: "number[]"},
				}
			},
			wantErr: "overridden twice",
		},
		{name: "no timeout", mutate: func(c *Config) { c.Fetch.Timeout = 0 }, wantErr: "fetch.timeout"},
		{name: "negative debounce", mutate: func(c *Config) { c.Watch.Debounce = -time.Second }, wantErr: "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
