// Package blobstore stores the serialized partial aggregates written by a run.
//
// A BlobStore holds immutable named blobs. Blobs are written once with Put
// and read back through Open. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, used by tests and single-process runs
//   - LocalStore: filesystem directory, reads are memory-mapped
//   - s3.Store: Amazon S3, multipart uploads through the transfer manager
//   - minio.Store: any S3-compatible endpoint through minio-go
//
// Backends whose blobs can be viewed without copying also implement Mappable,
// which ReadAll prefers over ReadAt.
package blobstore
