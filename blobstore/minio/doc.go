// Package minio provides a BlobStore for MinIO and other S3-compatible
// object stores through the MinIO client.
//
// # Basic Usage
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "partials",
//	    Prefix:    "batchagg/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The store has no conditional writes; pair it with a blobstore.Ledger to
// get commit-once semantics per batch.
package minio
