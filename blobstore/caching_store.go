package blobstore

import (
	"context"

	"github.com/hupe1980/ebitmap/internal/cache"
)

// CachingStore wraps a Store and serves repeated reads from a BlobCache.
type CachingStore struct {
	inner Store
	cache cache.BlobCache
	id    string
}

// NewCachingStore creates a new CachingStore. id separates this store's
// entries from other stores sharing the same cache.
func NewCachingStore(inner Store, c cache.BlobCache, id string) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: c,
		id:    id,
	}
}

func (s *CachingStore) key(name string) cache.Key {
	return cache.Key{Store: s.id, Name: name}
}

func (s *CachingStore) invalidate(name string) {
	key := s.key(name)
	s.cache.Invalidate(func(k cache.Key) bool { return k == key })
}

// Put writes through and drops any cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Get returns the cached blob or reads and caches it.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if b, ok := s.cache.Get(ctx, s.key(name)); ok {
		return b, nil
	}
	b, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, s.key(name), b)
	return b, nil
}

// Delete removes a blob and its cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
