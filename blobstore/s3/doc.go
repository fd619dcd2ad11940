// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.NewFromConfig(ctx, "my-bucket", "graphs/",
//	    func(o *s3.Options) { o.Region = "eu-central-1" },
//	)
//
//	g, err := kmerdb.OpenBlob(ctx, store, "sample.kdb")
//
// # Features
//
//   - Streaming range reads, so large graphs load without buffering
//   - Multipart uploads with CRC32C checksums for exports
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - Works against S3 Express directory buckets and S3-compatible endpoints
package s3
