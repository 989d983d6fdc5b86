// Package s3 implements blobstore.Store on Amazon S3.
//
// Uploads go through the SDK's upload manager, which switches to multipart
// upload for large snapshots, with CRC32C checksums enabled by default.
//
//	store, err := s3.NewFromEnv(ctx, "my-bucket", "bitmaps/")
//
// Any client implementing Client can be used, which is how the unit tests
// substitute a mock.
package s3
