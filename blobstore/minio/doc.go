// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible servers (Ceph, SeaweedFS,
// Garage) without any AWS dependency.
//
// # Basic Usage
//
//	store, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false, "my-bucket", "bitmaps/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	snaps := snapshot.NewStore(store)
package minio
