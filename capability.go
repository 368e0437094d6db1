package roarguard

import "github.com/hupe1980/roarguard/internal/simd"

// ISA is a SIMD instruction set tier.
type ISA = simd.ISA

// SIMD tiers, from slowest to fastest per architecture.
const (
	ISAGeneric = simd.Generic
	ISANEON    = simd.NEON
	ISASVE2    = simd.SVE2
	ISAAVX2    = simd.AVX2
	ISAAVX512  = simd.AVX512
)

// Capabilities describes the SIMD tiers in use.
type Capabilities = simd.Capabilities

// GetCapabilities returns the SIMD tiers resolved at first use. The
// ROARGUARD_DISABLE_<TIER> and ROARGUARD_SIMD environment variables are read
// once, before CPU detection; later changes have no effect.
func GetCapabilities() Capabilities {
	return simd.Get()
}
