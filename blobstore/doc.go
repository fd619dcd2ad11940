// Package blobstore provides the storage abstraction graph files are read
// from and exported to.
//
// BlobStore implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads through mmap
//   - MemoryStore: in-process map, for tests and fixtures
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Graph loading consumes a blob front to back through ReadRange, so remote
// backends should stream the response body rather than buffer it.
package blobstore
