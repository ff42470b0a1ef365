package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConfigFile, "")
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{File: writeConfig(t, "")})
	require.NoError(t, err)

	assert.Equal(t, "/usr/local", cfg.Prefix)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Greater(t, cfg.MakeJobs, 0)
	assert.Equal(t, 10*time.Minute, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, 2*time.Hour, cfg.Build.Timeout)
	assert.Equal(t, []string{"x86_64", "arm64"}, cfg.UniversalArchs)
	assert.NotEmpty(t, cfg.Archs)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.False(t, cfg.PruneBuildDependencies)
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	isolate(t)

	path := writeConfig(t, `
prefix = "/opt/cellar"
concurrency = 4
formula_paths = ["/srv/formulas"]

[fetch]
timeout = "30s"
`)
	t.Setenv("CELLAR_MAKE_JOBS", "7")
	t.Setenv("CELLAR_BUILD__TIMEOUT", "5m")

	cfg, err := Load(LoadOptions{
		File:      path,
		Overrides: map[string]interface{}{"concurrency": 8},
	})
	require.NoError(t, err)

	assert.Equal(t, "/opt/cellar", cfg.Prefix)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 7, cfg.MakeJobs)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Build.Timeout)
	assert.Equal(t, []string{"/srv/formulas"}, cfg.FormulaPaths)
}

func TestLoad_ExpandsPaths(t *testing.T) {
	isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FORMULA_ROOT", "/srv")

	path := writeConfig(t, `
prefix = "~/cellar"
cache_dir = "~/.cache/cellar"
formula_paths = ["$FORMULA_ROOT/formulas", "~"]
`)
	cfg, err := Load(LoadOptions{File: path})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "cellar"), cfg.Prefix)
	assert.Equal(t, filepath.Join(home, ".cache", "cellar"), cfg.CacheDir)
	assert.Equal(t, []string{"/srv/formulas", home}, cfg.FormulaPaths)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.toml")})
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative prefix", func(c *Config) { c.Prefix = "usr/local" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative jobs", func(c *Config) { c.MakeJobs = -1 }},
		{"negative timeout", func(c *Config) { c.Fetch.Timeout = -time.Second }},
		{"negative retries", func(c *Config) { c.Fetch.Retries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.True(t, errors.IsErrorCode(cfg.Validate(), errors.ErrConfigValid))
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
