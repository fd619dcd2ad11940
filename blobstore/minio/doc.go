// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works against MinIO and other S3-compatible systems such as Ceph,
// SeaweedFS and Garage without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.NewFromEndpoint("localhost:9000", minio.Credentials{
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, false, "graphs", "samples/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g, err := kmerdb.OpenBlob(ctx, store, "sample.kdb")
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
