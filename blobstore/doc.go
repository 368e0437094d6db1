// Package blobstore provides storage for serialized bitmap blobs.
//
// Store is the interface the blob hand-off functions (roarguard.SaveBlob,
// roarguard.LoadBlob) read and write through. Implementations must be safe
// for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: local file system with atomic writes and mmap support
//   - CachingStore: in-memory LRU in front of any other store
//   - s3.Store: Amazon S3 through the AWS SDK
//   - minio.Store: MinIO and other S3-compatible object stores
//   - bolt.Store: a single bbolt database file
//
// # Zero-Copy Reads
//
// Stores that implement Mapper hand out page-aligned, read-only mappings.
// roarguard.ViewBlob uses them to view frozen bitmaps without copying.
package blobstore
