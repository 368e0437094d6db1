package simd

import (
	"os"
	"runtime"
	"strings"
	"sync"
)

// ISA represents a SIMD instruction set tier.
type ISA uint8

const (
	// Generic represents pure Go implementation (no SIMD).
	Generic ISA = iota
	// NEON represents ARM64 NEON (128-bit SIMD, ASIMD).
	NEON
	// SVE2 represents ARM64 SVE2 (scalable vectors, 128-2048 bit).
	SVE2
	// AVX2 represents x86-64 AVX2 (256-bit SIMD with FMA).
	AVX2
	// AVX512 represents x86-64 AVX-512 (512-bit SIMD).
	AVX512

	numISA
)

// Environment variables consulted once, before detection.
const (
	// EnvOverride forces a tier (e.g. "avx2"). Ignored if the CPU lacks it.
	EnvOverride = "ROARGUARD_SIMD"
	// EnvDisablePrefix + tier name in upper case disables that tier,
	// e.g. ROARGUARD_DISABLE_AVX512=1.
	EnvDisablePrefix = "ROARGUARD_DISABLE_"
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case NEON:
		return "neon"
	case SVE2:
		return "sve2"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	default:
		return "unknown"
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "neon":
		return NEON, true
	case "sve2":
		return SVE2, true
	case "avx2":
		return AVX2, true
	case "avx512":
		return AVX512, true
	default:
		return Generic, false
	}
}

// Capabilities is the resolved, immutable view of the usable SIMD tiers.
type Capabilities struct {
	// Active is the tier the engine variant was selected for.
	Active ISA
	// Available lists the tiers the CPU supports and the environment did not disable.
	Available []ISA
	// Disabled lists tiers switched off through the environment.
	Disabled []ISA
	// Overridden is true if EnvOverride selected Active.
	Overridden bool
	// Variant names the engine build selected for Active.
	Variant string
}

// Has reports whether isa is usable.
func (c Capabilities) Has(isa ISA) bool {
	for _, a := range c.Available {
		if a == isa {
			return true
		}
	}
	return false
}

// features are the raw CPU flags, filled by the platform init functions.
// Reading them is cheap; resolving them into Capabilities is deferred to first use.
type features struct {
	asimd    bool // ARM64 NEON
	sve2     bool // ARM64 SVE2
	avx2     bool // x86-64 AVX2 + FMA
	avx512f  bool // x86-64 AVX-512 Foundation
	avx512bw bool // x86-64 AVX-512 Byte/Word
}

var hostFeatures features

// resolved is the one process-wide, init-once/read-forever value.
var resolved = sync.OnceValue(func() Capabilities {
	return resolve(hostFeatures, os.LookupEnv, runtime.GOOS, runtime.GOARCH)
})

// Get returns the process-wide capabilities, detecting them on first call.
func Get() Capabilities {
	return resolved()
}

// ActiveISA returns the currently active ISA.
func ActiveISA() ISA {
	return resolved().Active
}

// resolve turns CPU flags plus environment toggles into Capabilities.
// It is pure so tests can drive it with synthetic inputs.
func resolve(f features, lookup func(string) (string, bool), goos, goarch string) Capabilities {
	caps := Capabilities{}

	for isa := NEON; isa < numISA; isa++ {
		if !f.supports(isa) {
			continue
		}
		if v, ok := lookup(EnvDisablePrefix + strings.ToUpper(isa.String())); ok && truthy(v) {
			caps.Disabled = append(caps.Disabled, isa)
			continue
		}
		caps.Available = append(caps.Available, isa)
	}
	caps.Available = append([]ISA{Generic}, caps.Available...)

	caps.Active = selectBest(caps, goos, goarch)
	if override, ok := lookup(EnvOverride); ok && override != "" {
		if isa, ok := ParseISA(override); ok && caps.Has(isa) {
			caps.Active = isa
			caps.Overridden = true
		}
		// An unusable override falls through to auto-detection.
	}

	caps.Variant = Variant(caps.Active)
	return caps
}

func (f features) supports(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case NEON:
		return f.asimd
	case SVE2:
		return f.sve2
	case AVX2:
		return f.avx2
	case AVX512:
		return f.avx512f && f.avx512bw
	default:
		return false
	}
}

// selectBest chooses the optimal tier for the platform.
func selectBest(caps Capabilities, goos, goarch string) ISA {
	switch goarch {
	case "arm64":
		// Apple's SVE2 story is weaker than its NEON units; prefer NEON there.
		if caps.Has(SVE2) && goos != "darwin" {
			return SVE2
		}
		if caps.Has(NEON) {
			return NEON
		}
	case "amd64":
		if caps.Has(AVX512) {
			return AVX512
		}
		if caps.Has(AVX2) {
			return AVX2
		}
	}
	return Generic
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var variants = sync.OnceValue(func() [numISA]string {
	var v [numISA]string
	for isa := Generic; isa < numISA; isa++ {
		v[isa] = "roaring/" + isa.String()
	}
	return v
})

// Variant returns the engine build name for a tier. The table is built once.
func Variant(isa ISA) string {
	if isa >= numISA {
		return variants()[Generic]
	}
	return variants()[isa]
}
