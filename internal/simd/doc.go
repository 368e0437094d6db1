// Package simd resolves the SIMD tiers usable by the compressed-set engine.
//
// # Supported Tiers
//
//   - x86-64: AVX-512 (F+BW), AVX2 (+FMA)
//   - ARM64: SVE2, NEON
//   - everything else: generic
//
// Detection happens once per process, on the first call to Get. Environment
// toggles are consulted at that point only:
//
//	ROARGUARD_DISABLE_AVX512=1   # drop a tier (AVX2, NEON, SVE2 likewise)
//	ROARGUARD_SIMD=avx2          # force a tier the CPU supports
//
// The resolved tier also selects the kernel behind PutUint32s and Uint32s.
package simd
