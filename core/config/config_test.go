package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tristendillon/minibundle/core/models"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "/app", "")
	require.NoError(t, err)

	assert.Equal(t, "./src/index.js", cfg.Entry)
	assert.Equal(t, "dist", cfg.Output.Dir)
	assert.Equal(t, "bundle.js", cfg.Output.File)
	assert.Equal(t, "es2015", cfg.Transform.Target)
	assert.Equal(t, []string{"import"}, cfg.Discover)
	assert.True(t, cfg.Runtime.ModuleCache)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, Server{Host: "localhost", Port: 8080}, cfg.Server)
	assert.Equal(t, "/app", cfg.Root)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "/app/src/index.js", cfg.EntryPath())
	assert.Equal(t, "/app/dist/bundle.js", cfg.OutputPath())
	require.NoError(t, cfg.Validate())
}

func TestLoadFindsFileInParent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/minibundle.yaml", []byte(`
entry: ./lib/main.ts
output:
  dir: build
  minify: true
discover: [import, require]
runtime:
  module_cache: false
watch:
  debounce: 250ms
`), 0o644))
	require.NoError(t, fs.MkdirAll("/app/src/deep", 0o755))

	cfg, err := Load(fs, "/app/src/deep", "")
	require.NoError(t, err)

	assert.Equal(t, "/app/minibundle.yaml", cfg.File)
	assert.Equal(t, "/app", cfg.Root)
	assert.Equal(t, "/app/lib/main.ts", cfg.EntryPath())
	assert.Equal(t, "/app/build", cfg.OutputDir())
	assert.Equal(t, "bundle.js", cfg.Output.File)
	assert.True(t, cfg.Output.Minify)
	assert.False(t, cfg.Runtime.ModuleCache)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)

	kinds, err := cfg.DiscoverKinds()
	require.NoError(t, err)
	assert.Equal(t, []models.ImportKind{models.ImportStatement, models.RequireCall}, kinds)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/minibundle.yml", []byte("output:\n  dir: build\n"), 0o644))
	t.Setenv("MINIBUNDLE_OUTPUT_DIR", "from-env")

	cfg, err := Load(fs, "/app", "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Output.Dir)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/minibundle.yaml", []byte("entry: ./a.js\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/.env", []byte(
		"MINIBUNDLE_OUTPUT_FILE=app.js\nMINIBUNDLE_TRANSFORM_TARGET=es2020\nOTHER=ignored\n"), 0o644))

	unsetEnv(t, "MINIBUNDLE_OUTPUT_FILE")
	unsetEnv(t, "OTHER")
	t.Setenv("MINIBUNDLE_TRANSFORM_TARGET", "es2018")

	cfg, err := Load(fs, "/app", "")
	require.NoError(t, err)

	assert.Equal(t, "app.js", cfg.Output.File)
	assert.Equal(t, "es2018", cfg.Transform.Target)
	_, set := os.LookupEnv("OTHER")
	assert.False(t, set)
}

func TestLoadExplicitFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/configs/custom.yaml", []byte("output:\n  file: out.js\n"), 0o644))

	cfg, err := Load(fs, "/app", "/configs/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "out.js", cfg.Output.File)
	assert.Equal(t, "/configs", cfg.Root)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/app", "/nope.yaml")
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"empty entry", func(c *Config) { c.Entry = "" }, "entry must not be empty"},
		{"empty output dir", func(c *Config) { c.Output.Dir = " " }, "output.dir"},
		{"output file with slash", func(c *Config) { c.Output.File = "a/b.js" }, "output.file"},
		{"minify and pretty", func(c *Config) { c.Output.Minify, c.Output.Pretty = true, true }, "mutually exclusive"},
		{"unknown target", func(c *Config) { c.Transform.Target = "es3" }, "unknown transform target"},
		{"unknown discover kind", func(c *Config) { c.Discover = []string{"glob"} }, "unknown import kind"},
		{"cache without dir", func(c *Config) { c.Cache.Enabled, c.Cache.Dir = true, "" }, "cache.dir"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/app/minibundle.yaml"

	require.NoError(t, Write(fs, path, Default(), false))
	assert.ErrorContains(t, Write(fs, path, Default(), false), "already exists")
	require.NoError(t, Write(fs, path, Default(), true))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debounce: 500ms")
	assert.NotContains(t, string(data), "root")

	cfg, err := Load(fs, "/app", "")
	require.NoError(t, err)
	cfg.Root, cfg.File = "", ""
	assert.Equal(t, Default(), cfg)
}

func TestFindUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/minibundle.yml", nil, 0o644))
	require.NoError(t, fs.MkdirAll("/a/b/c", 0o755))

	got, ok := FindUp(fs, "/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "/a/minibundle.yml", got)

	_, ok = FindUp(fs, "/elsewhere")
	assert.False(t, ok)
}
