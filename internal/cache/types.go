package cache

import "context"

// Key identifies a cached blob: the store it came from and its name.
type Key struct {
	Store string
	Name  string
}

// BlobCache is a byte-oriented cache for whole blobs.
// Returned slices must be treated as read-only.
type BlobCache interface {
	// Get returns a cached blob. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a blob. The cache retains b; callers must not modify it.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
