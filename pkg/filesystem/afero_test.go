package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFilesystem(t *testing.T) {
	fsys := NewOS()
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, fsys.MkdirAll(nested, 0755))

	file := filepath.Join(nested, "f.txt")
	require.NoError(t, fsys.WriteFile(file, []byte("hi"), 0644))
	data, err := fsys.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	_, err = fsys.ReadFile(nested)
	assert.Error(t, err, "reading a directory fails")

	link := filepath.Join(dir, "link")
	require.NoError(t, fsys.Symlink(file, link))
	target, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, file, target)

	info, err := fsys.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	entries, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	moved := filepath.Join(dir, "moved.txt")
	require.NoError(t, fsys.Rename(file, moved))
	require.NoError(t, fsys.Remove(moved))
	require.NoError(t, fsys.RemoveAll(filepath.Join(dir, "a")))
	_, err = fsys.Stat(nested)
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryFilesystemSymlink(t *testing.T) {
	fsys := NewMemory()

	require.NoError(t, fsys.MkdirAll("/p/bin", 0755))
	require.NoError(t, fsys.Symlink("/p/Cellar/x/1/bin/x", "/p/bin/x"))

	target, err := fsys.Readlink("/p/bin/x")
	require.NoError(t, err)
	assert.Equal(t, "/p/Cellar/x/1/bin/x", target)

	assert.Error(t, fsys.Symlink("/elsewhere", "/p/bin/x"), "existing link is not replaced")
}

func TestMkdirReportsExisting(t *testing.T) {
	for name, fsys := range map[string]interface {
		Mkdir(string, os.FileMode) error
	}{"os": NewOS(), "memory": NewMemory()} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "d")
			require.NoError(t, fsys.Mkdir(dir, 0755))
			err := fsys.Mkdir(dir, 0755)
			assert.True(t, os.IsExist(err), "second mkdir: %v", err)
		})
	}
}
