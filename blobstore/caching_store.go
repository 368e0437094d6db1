package blobstore

import (
	"context"
	"slices"

	"github.com/hupe1980/roarguard/internal/cache"
)

// CachingStore wraps a Store and keeps recently read blobs in memory.
// Blobs are immutable, so only Put and Delete through this store invalidate.
type CachingStore struct {
	inner Store
	cache cache.BlobCache
}

// NewCachingStore creates a new CachingStore holding at most capacity bytes.
func NewCachingStore(inner Store, capacity int64) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: cache.NewLRUBlobCache(capacity, nil),
	}
}

// Get serves from the cache, falling back to the wrapped store.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(ctx, name); ok {
		return slices.Clone(data), nil
	}
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, name, slices.Clone(data))
	return data, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Map delegates to the wrapped store when it can map blobs.
func (s *CachingStore) Map(ctx context.Context, name string) (Mapping, error) {
	m, ok := s.inner.(Mapper)
	if !ok {
		return nil, ErrNotMappable
	}
	return m.Map(ctx, name)
}

// Stats returns cache hits and misses.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

// Close drops all cached blobs.
func (s *CachingStore) Close() error {
	return s.cache.Close()
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key string) bool { return key == name })
}
