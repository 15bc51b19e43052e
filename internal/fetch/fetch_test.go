package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://github.com/acme/app.git"))
	assert.True(t, IsRemote("http://git.internal/app"))
	assert.True(t, IsRemote("git@github.com:acme/app.git"))
	assert.True(t, IsRemote("/srv/mirrors/app.git"))
	assert.False(t, IsRemote("/srv/code/app"))
	assert.False(t, IsRemote("./relative/path"))
}

func TestResolve_LocalDirectory(t *testing.T) {
	root := t.TempDir()
	target, err := Resolve(context.Background(), root)
	require.NoError(t, err)
	defer target.Cleanup()

	assert.Equal(t, root, target.Root)
	assert.False(t, target.Remote)

	// Cleanup of a local target must not delete the user's tree.
	target.Cleanup()
	_, err = os.Stat(root)
	assert.NoError(t, err)
}

func TestResolve_LocalErrors(t *testing.T) {
	_, err := Resolve(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.php")
	require.NoError(t, os.WriteFile(file, []byte("<?php"), 0o644))
	_, err = Resolve(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestResolve_BadRemoteCleansUp(t *testing.T) {
	before := tempEntries(t)
	_, err := Resolve(context.Background(), "https://127.0.0.1:1/none/none.git")
	require.Error(t, err)
	assert.Equal(t, before, tempEntries(t), "failed clone must not leave a workspace behind")
}

func tempEntries(t *testing.T) int {
	t.Helper()
	entries, err := filepath.Glob(filepath.Join(os.TempDir(), "hnpscan-clone-*"))
	require.NoError(t, err)
	return len(entries)
}
