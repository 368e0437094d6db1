// Package mem provides memory allocation utilities.
package mem

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"unsafe"
)

// DefaultAlignment is the byte alignment the engine's SIMD paths expect (32 bytes, AVX2 width).
const DefaultAlignment = 32

// ErrInvalidAlignment is returned for alignments that are not a positive power of two.
var ErrInvalidAlignment = errors.New("mem: alignment must be a positive power of two")

// ErrInvalidLength is returned for negative lengths.
var ErrInvalidLength = errors.New("mem: length must not be negative")

// Kind describes where a block's backing memory lives.
type Kind uint8

const (
	// Local is memory owned by the Go heap of this process.
	Local Kind = iota
	// Shared is an anonymous shared mapping usable across execution contexts.
	Shared
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Shared:
		return "shared"
	default:
		return "unknown"
	}
}

// ValidateAlignment reports ErrInvalidAlignment unless alignment is a power of two.
func ValidateAlignment(alignment int) error {
	if alignment <= 0 || bits.OnesCount(uint(alignment)) != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidAlignment, alignment)
	}
	return nil
}

// IsAligned reports whether buf starts at an address divisible by alignment.
// Empty slices are always aligned.
func IsAligned(buf []byte, alignment int) bool {
	if len(buf) == 0 || alignment <= 1 {
		return true
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf))) //nolint:gosec // unsafe is required for memory alignment
	return addr&uintptr(alignment-1) == 0
}

// Alloc allocates a zeroed byte slice of the given length whose first byte
// sits at an address divisible by alignment.
//
// The slice over-allocates by alignment bytes; the underlying array is kept
// alive by the returned slice. A zero length returns an empty, non-nil slice.
func Alloc(length, alignment int) ([]byte, error) {
	if err := ValidateAlignment(alignment); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, ErrInvalidLength
	}
	if length == 0 {
		return []byte{}, nil
	}
	return alignedSlice(make([]byte, length+alignment), length, alignment), nil
}

// AllocUnsafe is like Alloc but skips zero-initialisation when it can reuse a
// recycled buffer. The contents of the returned slice are unspecified.
func AllocUnsafe(length, alignment int) ([]byte, error) {
	if err := ValidateAlignment(alignment); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, ErrInvalidLength
	}
	if length == 0 {
		return []byte{}, nil
	}
	if raw := recycled.take(length + alignment); raw != nil {
		return alignedSlice(raw, length, alignment), nil
	}
	return alignedSlice(make([]byte, length+alignment), length, alignment), nil
}

// Recycle hands a buffer obtained from AllocUnsafe back for reuse.
// The caller must not touch buf afterwards.
func Recycle(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	recycled.put(buf[:cap(buf)])
}

// EnsureAligned returns buf unchanged when it is already aligned. Otherwise it
// copies buf into a freshly allocated aligned block; the input is never
// modified. copied reports which case happened.
func EnsureAligned(buf []byte, alignment int) (out []byte, copied bool, err error) {
	if err := ValidateAlignment(alignment); err != nil {
		return nil, false, err
	}
	if IsAligned(buf, alignment) {
		return buf, false, nil
	}
	out, err = Alloc(len(buf), alignment)
	if err != nil {
		return nil, false, err
	}
	copy(out, buf)
	return out, true, nil
}

func alignedSlice(raw []byte, length, alignment int) []byte {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw))) //nolint:gosec // unsafe is required for memory alignment
	offset := (uintptr(alignment) - (addr & uintptr(alignment-1))) & uintptr(alignment-1)
	return raw[offset : offset+uintptr(length) : offset+uintptr(length)]
}

// recyclePool keeps a few size classes of raw buffers around for AllocUnsafe.
type recyclePool struct {
	classes [maxClass + 1]sync.Pool
}

const (
	minClass = 6  // 64 B
	maxClass = 26 // 64 MiB
)

var recycled recyclePool

func sizeClass(n int) int {
	c := bits.Len(uint(n - 1))
	if c < minClass {
		c = minClass
	}
	return c
}

func (p *recyclePool) take(n int) []byte {
	c := sizeClass(n)
	if c > maxClass {
		return nil
	}
	v := p.classes[c].Get()
	if v == nil {
		return nil
	}
	buf := *(v.(*[]byte))
	if cap(buf) < n {
		return nil
	}
	return buf[:n]
}

func (p *recyclePool) put(buf []byte) {
	// Only full size classes are pooled so take() never under-delivers.
	c := bits.Len(uint(cap(buf))) - 1
	if c < minClass || c > maxClass {
		return
	}
	buf = buf[:1<<c]
	p.classes[c].Put(&buf)
}
