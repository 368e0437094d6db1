// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// The compressed-set engine reads frozen bitmaps through SIMD-width loads, so
// buffers handed to it must start on an aligned address (32 bytes by
// default, any power of two on request):
//
//	buf, _ := mem.Alloc(n, mem.DefaultAlignment)       // zeroed
//	buf, _ = mem.AllocUnsafe(n, 64)                    // recycled, contents unspecified
//	out, copied, _ := mem.EnsureAligned(external, 32)  // never mutates external
//
// # Shared Blocks
//
// AllocShared returns memory from an anonymous shared mapping instead of the
// Go heap. It can be handed to another execution context (a forked worker or
// foreign code) as raw bytes and must be closed explicitly.
package mem
