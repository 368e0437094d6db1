// Package frame wraps serialized bitmaps for hand-off between processes.
//
// A frame is a fixed 32-byte header followed by the payload:
//
//	offset size field
//	0      4    magic "RGBF"
//	4      1    version
//	5      1    serialization format tag
//	6      1    compression (none, lz4, zstd)
//	7      1    reserved
//	8      8    stored payload length
//	16     8    raw (uncompressed) payload length
//	24     4    CRC32C of the stored payload
//	28     4    reserved
//
// The header length keeps an uncompressed payload 32-byte aligned whenever
// the frame itself starts on a 32-byte boundary, so frozen layouts can be
// viewed in place straight out of a mapped file.
package frame
