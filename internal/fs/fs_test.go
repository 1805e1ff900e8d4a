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
	dir := filepath.Join(t.TempDir(), "index")
	lfs := LocalFS{}

	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "postings.dat.tmp")
	f, err := lfs.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	final := filepath.Join(dir, "postings.dat")
	require.NoError(t, lfs.Rename(path, final))

	info, err = lfs.Stat(final)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	require.NoError(t, lfs.Remove(final))
	_, err = lfs.Stat(final)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("postings", Fault{FailAfterBytes: 5})

	path := filepath.Join(t.TempDir(), "postings.dat")
	f, err := ffs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Zero(t, n)
	assert.Equal(t, int64(5), ffs.Written())
}

func TestFaultyFS_UnmatchedFilesPassThrough(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("postings", Fault{FailAfterBytes: 0})

	path := filepath.Join(t.TempDir(), "other.dat")
	f, err := ffs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write(make([]byte, 1024))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
}

func TestFaultyFS_SyncCloseOpen(t *testing.T) {
	boom := errors.New("disk on fire")
	dir := t.TempDir()

	ffs := NewFaultyFS(nil)
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom})
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true})
	ffs.AddRule("open", Fault{FailOnOpen: true})

	f, err := ffs.OpenFile(filepath.Join(dir, "sync.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(dir, "close.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), ErrInjected)

	_, err = ffs.OpenFile(filepath.Join(dir, "open.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, ErrInjected)

	require.NoError(t, ffs.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, ffs.Rename(filepath.Join(dir, "sync.dat"), filepath.Join(dir, "sub", "moved.dat")))
	_, err = ffs.Stat(filepath.Join(dir, "sub", "moved.dat"))
	require.NoError(t, err)
	require.NoError(t, ffs.Remove(filepath.Join(dir, "sub", "moved.dat")))
}
