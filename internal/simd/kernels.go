package simd

import (
	"encoding/binary"
	"unsafe"
)

// littleEndian reports whether the host stores integers little-endian first.
var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1 //nolint:gosec // byte order probe
}()

// PutUint32s writes src into dst as little-endian uint32 values.
// dst must hold at least 4*len(src) bytes.
func PutUint32s(dst []byte, src []uint32) {
	if useBulk() {
		putUint32sBulk(dst, src)
		return
	}
	putUint32sGeneric(dst, src)
}

// Uint32s decodes little-endian uint32 values from src into dst.
// src must hold at least 4*len(dst) bytes.
func Uint32s(dst []uint32, src []byte) {
	if useBulk() {
		uint32sBulk(dst, src)
		return
	}
	uint32sGeneric(dst, src)
}

func useBulk() bool {
	return littleEndian && ActiveISA() != Generic
}

func putUint32sGeneric(dst []byte, src []uint32) {
	_ = dst[:4*len(src)]
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[4*i:], v)
	}
}

func uint32sGeneric(dst []uint32, src []byte) {
	_ = src[:4*len(dst)]
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[4*i:])
	}
}

// putUint32sBulk reinterprets src as bytes and lets copy use the runtime's
// vectorized memmove. Only valid on little-endian hosts.
func putUint32sBulk(dst []byte, src []uint32) {
	if len(src) == 0 {
		return
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(src))), 4*len(src)) //nolint:gosec // reinterpretation of []uint32
	copy(dst[:len(raw)], raw)
}

func uint32sBulk(dst []uint32, src []byte) {
	if len(dst) == 0 {
		return
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(dst))), 4*len(dst)) //nolint:gosec // reinterpretation of []uint32
	copy(raw, src[:len(raw)])
}
