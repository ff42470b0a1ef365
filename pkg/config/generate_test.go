package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentOutConfigValues(t *testing.T) {
	in := "# comment\nprefix = \"/usr/local\"\n\n[fetch]\ntimeout = \"10m\"\n"
	want := "# comment\n# prefix = \"/usr/local\"\n\n[fetch]\n# timeout = \"10m\"\n"
	assert.Equal(t, want, commentOutConfigValues(in))
}

func TestGenerateConfigContent_LoadsAsDefaults(t *testing.T) {
	isolate(t)

	content := GenerateConfigContent()
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		t.Fatalf("uncommented value line %q", line)
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(LoadOptions{File: path})
	require.NoError(t, err)
	assert.Equal(t, Default().Prefix, cfg.Prefix)
	assert.Equal(t, Default().Fetch, cfg.Fetch)
}

func TestWriteUserConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	got, err := WriteUserConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, GenerateConfigContent(), string(data))

	_, err = WriteUserConfig(path, false)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))

	require.NoError(t, os.WriteFile(path, []byte("prefix = \"/x\"\n"), 0644))
	_, err = WriteUserConfig(path, true)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, GenerateConfigContent(), string(data))
}

func TestWriteUserConfig_UsesEnvLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "from-env.toml")
	t.Setenv(EnvConfigFile, path)

	got, err := WriteUserConfig("", false)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.FileExists(t, path)
}
