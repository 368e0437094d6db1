package blobstore

import (
	"context"
	"errors"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store holds named, immutable blobs of serialized bitmaps.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the whole blob. The caller owns the returned slice.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any previous blob of that name.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Mapper is implemented by stores that can map a blob into memory without copying it.
type Mapper interface {
	// Map returns a read-only mapping of the blob. Its bytes start on a page boundary.
	Map(ctx context.Context, name string) (Mapping, error)
}

// Mapping is a read-only view of a blob's bytes.
type Mapping interface {
	// Bytes returns the mapped bytes. The slice is invalid after Close.
	Bytes() []byte
	// Close releases the mapping.
	Close() error
}

// ErrNotMappable is returned by Map when the underlying store cannot map blobs.
var ErrNotMappable = errors.New("blobstore: store cannot map blobs")
