// Package snapshot stores serialized bitmaps in a blob store.
//
// A snapshot is two blobs: the payload (<name>.rbm) and a manifest
// (<name>.json). The payload is the engine's serialization bytes wrapped in a
// small envelope:
//
//	magic "EBM1" | compression | length | CRC-32C | payload
//
// The payload itself is opaque here; it is produced by the serialize
// operation and consumed by deserialize. Compression is none, LZ4 or zstd.
//
//	store := snapshot.NewStore(blobstore.NewLocalStore("./data"),
//	    snapshot.WithCompression(snapshot.CompressionZstd))
//	m, err := store.Save(ctx, "users", data, stats)
package snapshot
