package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "graph.tmp")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	assert.Equal(t, fpath, f.Name())
	require.NoError(t, f.Close())

	newPath := filepath.Join(dir, "graph.kdb")
	require.NoError(t, lfs.Rename(fpath, newPath))
	info, err := lfs.Stat(newPath)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	require.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("boom")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("short", Fault{FailAfterBytes: 4})
	ffs.AddRule("nosync", Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom})
	ffs.AddRule("final", Fault{FailAfterBytes: -1, FailOnRename: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "short"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = f.Write([]byte("de"))
	assert.ErrorIs(t, err, ErrInjected)
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(tmp, "nosync"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())

	err = ffs.Rename(filepath.Join(tmp, "nosync"), filepath.Join(tmp, "final"))
	assert.ErrorIs(t, err, ErrInjected)

	f, err = ffs.OpenFile(filepath.Join(tmp, "plain"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 1<<16))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
