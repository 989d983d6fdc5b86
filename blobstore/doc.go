// Package blobstore provides storage abstraction for bitmap snapshots.
//
// Store is the interface for reading and writing whole blobs (snapshot
// payloads and their manifests). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: local directory with atomic temp-file rename
//   - s3.Store: Amazon S3 via aws-sdk-go-v2 and the multipart upload manager
//   - minio.Store: MinIO and other S3-compatible servers via minio-go
//
// CachingStore wraps any Store and keeps recently read blobs in memory.
//
// # Custom Implementations
//
//	type Store interface {
//	    Put(ctx, name, data) error
//	    Get(ctx, name) ([]byte, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
