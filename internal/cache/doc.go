// Package cache provides an LRU cache for serialized bitmap blobs.
//
// LRUBlobCache keeps recently loaded blobs in memory so that repeated loads
// from a remote store skip the network. Capacity is bounded in bytes, and if
// a resource.Controller is supplied every cached byte is also accounted
// against its memory limit. Inserts never block: when the controller has no
// room the blob is simply not cached.
package cache
