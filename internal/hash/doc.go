// Package hash provides the CRC32-Castagnoli checksum used by blob frames.
//
// One-shot:
//
//	sum := hash.CRC32C(payload)
//
// Streaming:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
//
// Go's crc32 package uses SSE4.2 or the ARM CRC extension when available.
package hash
