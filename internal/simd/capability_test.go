package simd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

var allX86 = features{avx2: true, avx512f: true, avx512bw: true}

func TestResolve_PicksBestTier(t *testing.T) {
	caps := resolve(allX86, env(nil), "linux", "amd64")
	assert.Equal(t, AVX512, caps.Active)
	assert.False(t, caps.Overridden)
	assert.Equal(t, "roaring/avx512", caps.Variant)
	assert.Equal(t, []ISA{Generic, AVX2, AVX512}, caps.Available)
	assert.Empty(t, caps.Disabled)
}

func TestResolve_DisableToggles(t *testing.T) {
	caps := resolve(allX86, env(map[string]string{"ROARGUARD_DISABLE_AVX512": "1"}), "linux", "amd64")
	assert.Equal(t, AVX2, caps.Active)
	assert.Equal(t, []ISA{AVX512}, caps.Disabled)
	assert.False(t, caps.Has(AVX512))

	caps = resolve(allX86, env(map[string]string{
		"ROARGUARD_DISABLE_AVX512": "true",
		"ROARGUARD_DISABLE_AVX2":   "yes",
	}), "linux", "amd64")
	assert.Equal(t, Generic, caps.Active)
	assert.Equal(t, "roaring/generic", caps.Variant)

	// Falsy values do not disable anything.
	caps = resolve(allX86, env(map[string]string{"ROARGUARD_DISABLE_AVX512": "0"}), "linux", "amd64")
	assert.Equal(t, AVX512, caps.Active)
}

func TestResolve_AVX512NeedsBW(t *testing.T) {
	caps := resolve(features{avx2: true, avx512f: true}, env(nil), "linux", "amd64")
	assert.Equal(t, AVX2, caps.Active)
}

func TestResolve_Override(t *testing.T) {
	caps := resolve(allX86, env(map[string]string{"ROARGUARD_SIMD": "avx2"}), "linux", "amd64")
	assert.Equal(t, AVX2, caps.Active)
	assert.True(t, caps.Overridden)

	// Overrides are validated against hardware and toggles.
	caps = resolve(features{avx2: true}, env(map[string]string{"ROARGUARD_SIMD": "avx512"}), "linux", "amd64")
	assert.Equal(t, AVX2, caps.Active)
	assert.False(t, caps.Overridden)

	caps = resolve(allX86, env(map[string]string{
		"ROARGUARD_SIMD":           "avx512",
		"ROARGUARD_DISABLE_AVX512": "on",
	}), "linux", "amd64")
	assert.Equal(t, AVX2, caps.Active)

	caps = resolve(allX86, env(map[string]string{"ROARGUARD_SIMD": "bogus"}), "linux", "amd64")
	assert.Equal(t, AVX512, caps.Active)

	caps = resolve(allX86, env(map[string]string{"ROARGUARD_SIMD": "generic"}), "linux", "amd64")
	assert.Equal(t, Generic, caps.Active)
	assert.True(t, caps.Overridden)
}

func TestResolve_ARM64(t *testing.T) {
	f := features{asimd: true, sve2: true}
	assert.Equal(t, SVE2, resolve(f, env(nil), "linux", "arm64").Active)
	assert.Equal(t, NEON, resolve(f, env(nil), "darwin", "arm64").Active)
	assert.Equal(t, NEON, resolve(f, env(map[string]string{"ROARGUARD_DISABLE_SVE2": "1"}), "linux", "arm64").Active)
	assert.Equal(t, Generic, resolve(features{}, env(nil), "linux", "arm64").Active)
}

func TestGet_IsStable(t *testing.T) {
	a := Get()
	b := Get()
	assert.Equal(t, a, b)
	assert.True(t, a.Has(Generic))
	assert.Equal(t, Variant(a.Active), a.Variant)
	assert.Equal(t, a.Active, ActiveISA())
}

func TestParseISA(t *testing.T) {
	for isa := Generic; isa < numISA; isa++ {
		got, ok := ParseISA(isa.String())
		require.True(t, ok)
		assert.Equal(t, isa, got)
	}
	got, ok := ParseISA(" AVX2 ")
	assert.True(t, ok)
	assert.Equal(t, AVX2, got)
	_, ok = ParseISA("sse4")
	assert.False(t, ok)
	assert.Equal(t, "unknown", ISA(42).String())
	assert.Equal(t, "roaring/generic", Variant(ISA(42)))
}

func TestUint32Kernels(t *testing.T) {
	src := []uint32{0, 1, 0xdeadbeef, 1 << 31, 65536}
	want := []byte{
		0, 0, 0, 0,
		1, 0, 0, 0,
		0xef, 0xbe, 0xad, 0xde,
		0, 0, 0, 0x80,
		0, 0, 1, 0,
	}

	generic := make([]byte, len(want))
	putUint32sGeneric(generic, src)
	assert.Equal(t, want, generic)

	out := make([]byte, len(want))
	PutUint32s(out, src)
	assert.Equal(t, want, out)

	back := make([]uint32, len(src))
	Uint32s(back, want)
	assert.Equal(t, src, back)

	back = make([]uint32, len(src))
	uint32sGeneric(back, want)
	assert.Equal(t, src, back)

	if littleEndian {
		bulk := make([]byte, len(want))
		putUint32sBulk(bulk, src)
		assert.Equal(t, want, bulk)

		back = make([]uint32, len(src))
		uint32sBulk(back, want)
		assert.Equal(t, src, back)
	}

	PutUint32s(nil, nil)
	Uint32s(nil, nil)
}
