// Package ebitmap provides compressed sets of uint32 values (roaring bitmaps)
// driven by a cooperative scheduler.
//
// Sets live behind opaque handles. A Runtime owns the handle table and runs
// every operation as a scheduler task; bulk inserts measure their own wall
// time and yield between chunks, so a call inserting millions of values never
// holds a turn for longer than one time slice.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt := ebitmap.New()
//	defer rt.Close()
//
//	a, _ := rt.CreateOf(ctx, []uint32{1, 2, 3})
//	b, _ := rt.CreateOf(ctx, []uint32{3, 4, 5})
//
//	u, _ := rt.Union(ctx, a, b)
//	n, _ := rt.Cardinality(ctx, u) // 5
//
// # Untyped Calls
//
// Every typed method is a wrapper around Call, which takes an operation name
// and loosely typed arguments the way a scripting host would pass them:
//
//	res, err := rt.Call(ctx, "add", b, 42)
//	if errors.Is(err, ebitmap.ErrBadArgument) { ... }
//
// Operations: create, add, contains, cardinality, union, intersection,
// equals, is_subset, serialize, deserialize, statistics, create_of, add_all.
//
// # Handle Lifetime
//
// A set is destroyed once its Bitmap is unreachable, or immediately on
// Bitmap.Close. Destruction happens at most once; a handle that no longer
// resolves fails with ErrInvalidHandle.
//
// # Bulk Insert
//
// create_of and add_all insert in chunks (WithChunkSize, default 1000). After
// each chunk the elapsed time is charged to the current turn in proportion to
// WithMaxSlice (default 160µs); once the turn is used up the insert yields and
// resumes at the next value on a later turn. A malformed element stops the
// insert with a *PartialInsertError; values before it stay in the set.
//
// # Snapshots
//
//	store := rt.SnapshotStore(blobstore.NewLocalStore("./data"),
//	    snapshot.WithCompression(snapshot.CompressionZstd))
//	_, err := rt.Save(ctx, store, "users", u)
//	restored, err := rt.Load(ctx, store, "users")
//
// Snapshots can be kept in memory, on local disk, on S3 (blobstore/s3) or on
// MinIO (blobstore/minio).
package ebitmap
