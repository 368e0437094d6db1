package cache

import "context"

// BlobCache is a byte-oriented cache for immutable blobs, keyed by blob name.
// Returned slices must be treated as read-only.
type BlobCache interface {
	// Get returns a cached blob. ok=false if missing.
	Get(ctx context.Context, name string) (b []byte, ok bool)
	// Set caches a blob. Implementations retain b; the caller must treat it as immutable.
	Set(ctx context.Context, name string, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(name string) bool)
	// Close releases any resources.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
