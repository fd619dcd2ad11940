package minio

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kmerdb/blobstore"
)

func TestStore_KeyMapping(t *testing.T) {
	tests := []struct {
		prefix, name, key string
	}{
		{"", "g.kdb", "g.kdb"},
		{"graphs/", "g.kdb", "graphs/g.kdb"},
		{"graphs", "sub/g.kdb", "graphs/sub/g.kdb"},
	}
	for _, tt := range tests {
		s := NewStore(nil, "bucket", tt.prefix)
		assert.Equal(t, tt.key, s.key(tt.name))
		assert.Equal(t, tt.name, s.name(tt.key))
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestNewFromEndpoint(t *testing.T) {
	s, err := NewFromEndpoint("localhost:9000", Credentials{AccessKey: "a", SecretKey: "b"}, false, "bucket", "p/")
	require.NoError(t, err)
	assert.Equal(t, "p/x", s.key("x"))

	_, err = NewFromEndpoint("http://bad endpoint", Credentials{}, false, "bucket", "")
	assert.Error(t, err)
}

// TestMinioStore_Integration requires a running MinIO instance at MINIO_ENDPOINT.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}
	bucket := "test-kmerdb"

	store, err := NewFromEndpoint(endpoint, Credentials{AccessKey: "minioadmin", SecretKey: "minioadmin"}, false, bucket, "test-prefix/")
	require.NoError(t, err)

	ctx := context.Background()
	if _, err := store.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := store.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.txt", data))

	blob, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.txt")

	require.NoError(t, store.Delete(ctx, "test.txt"))
	_, err = store.Open(ctx, "test.txt")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.txt")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	blob3, err := store.Open(ctx, "stream.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(13), blob3.Size())
	require.NoError(t, blob3.Close())

	_ = store.Delete(ctx, "stream.txt")
}
