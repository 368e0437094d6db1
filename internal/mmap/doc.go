// Package mmap provides memory-mapped file access for zero-copy I/O.
//
// Memory mapping lets a serialized bitmap file be interpreted in place: the
// frozen view reads containers straight out of the page cache instead of
// copying them onto the Go heap.
//
//	m, err := mmap.Open("bitmap.frozen")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessRandom)
//	data := m.Bytes() // valid until Close
//
// On Unix the mapping uses mmap(2) and madvise(2). On Windows it uses
// CreateFileMapping and Advise does nothing.
//
// Bytes may be read concurrently. Close is idempotent, but nothing may touch
// the slice returned by Bytes once Close has been called.
//
// MapShared creates a read-write anonymous mapping shared with child
// processes. The mem package builds its cross-context blocks on it.
package mmap
