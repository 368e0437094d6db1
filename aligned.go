package roarguard

import "github.com/hupe1980/roarguard/internal/mem"

// DefaultAlignment is the alignment of every block Serialize returns and the
// alignment unsafe_frozen_croaring views require.
const DefaultAlignment = mem.DefaultAlignment

// SharedBlock is an aligned block in anonymous shared memory. It must be closed.
type SharedBlock = mem.SharedBlock

// Alloc returns a zeroed slice of length bytes starting on an alignment
// boundary. alignment must be a power of two.
func Alloc(length, alignment int) ([]byte, error) {
	buf, err := mem.Alloc(length, alignment)
	return buf, translateError(err)
}

// AllocUnsafe is Alloc without zeroing. Return the slice with Recycle when done.
func AllocUnsafe(length, alignment int) ([]byte, error) {
	buf, err := mem.AllocUnsafe(length, alignment)
	return buf, translateError(err)
}

// Recycle hands a slice from AllocUnsafe back for reuse.
func Recycle(buf []byte) { mem.Recycle(buf) }

// AllocShared returns a zeroed block of shared memory that other processes
// mapping it, or foreign code, can read as raw bytes.
func AllocShared(length, alignment int) (*SharedBlock, error) {
	b, err := mem.AllocShared(length, alignment)
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

// EnsureAligned returns buf if it already starts on an alignment boundary,
// and an aligned copy otherwise. buf is never modified.
func EnsureAligned(buf []byte, alignment int) (out []byte, copied bool, err error) {
	out, copied, err = mem.EnsureAligned(buf, alignment)
	return out, copied, translateError(err)
}

// IsAligned reports whether buf starts on an alignment boundary.
func IsAligned(buf []byte, alignment int) bool { return mem.IsAligned(buf, alignment) }
