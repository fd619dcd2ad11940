package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kfs "github.com/hupe1980/kmerdb/internal/fs"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	ctx := context.Background()

	// 1. Create a blob
	blobName := "graphs/sample-001.kdb"
	data := []byte("hello world, this is a test blob for kmerdb")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close
	_, err = os.Stat(filepath.Join(tmpDir, "graphs", "sample-001.kdb"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "graphs", "sample-001.kdb"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6) // "world"
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// 3. ReadRange
	rangeReader, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	defer rangeReader.Close()

	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.Equal(t, "this", string(rangeContent))

	// 4. List
	require.NoError(t, store.Put(ctx, "graphs/sample-002.kdb", []byte("x")))
	require.NoError(t, store.Put(ctx, "other.kdb", nil))

	blobs, err := store.List(ctx, "graphs/")
	require.NoError(t, err)
	require.Equal(t, []string{"graphs/sample-001.kdb", "graphs/sample-002.kdb"}, blobs)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	// 5. Delete
	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName))

	blobsAfter, err := store.List(ctx, "graphs/")
	require.NoError(t, err)
	require.Equal(t, []string{"graphs/sample-002.kdb"}, blobsAfter)

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ReadRange_Boundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	// Full range
	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, _ := io.ReadAll(r)
	r.Close()
	require.True(t, bytes.Equal(data, content))

	// Past end: only 8 and 9 are available
	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))
	r.Close()

	// Offset past EOF
	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)

	// Short ReadAt
	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 8)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
}

func TestLocalBlobStore_Mappable(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "m.bin", []byte("mapped")))

	blob, err := store.Open(ctx, "m.bin")
	require.NoError(t, err)

	m, ok := blob.(Mappable)
	require.True(t, ok)
	b, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(b))

	r, err := NewReader(ctx, blob)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(all))

	require.NoError(t, blob.Close())
	_, err = m.Bytes()
	assert.Error(t, err)
}

func TestLocalBlobStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "empty", nil))

	blob, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(0), blob.Size())
	r, err := NewReader(ctx, blob)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLocalBlobStore_CreateFault(t *testing.T) {
	tmpDir := t.TempDir()
	faulty := kfs.NewFaultyFS(nil)
	faulty.AddRule("broken", kfs.Fault{FailAfterBytes: -1, FailOnSync: true})
	store := &LocalStore{root: tmpDir, fs: faulty}
	ctx := context.Background()

	err := store.Put(ctx, "broken.kdb", []byte("data"))
	require.ErrorIs(t, err, kfs.ErrInjected)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file left behind")
}

func TestLocalBlobStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_Canceled(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Create(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalBlobStore_Abort(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	w, err := store.Create(ctx, "partial.kdb")
	require.NoError(t, err)
	_, err = w.Write([]byte("half a graph"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))

	_, err = store.Open(ctx, "partial.kdb")
	require.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
