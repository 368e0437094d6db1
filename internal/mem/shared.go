package mem

import (
	"errors"
	"os"
	"sync/atomic"

	"github.com/hupe1980/roarguard/internal/mmap"
)

// ErrSharedClosed is returned when a closed shared block is accessed.
var ErrSharedClosed = errors.New("mem: shared block is closed")

// SharedBlock is an aligned block backed by an anonymous shared mapping.
// Unlike Local blocks it lives outside the Go heap, so it must be closed.
type SharedBlock struct {
	data      []byte
	mapping   *mmap.Mapping
	alignment int
	closed    atomic.Bool
}

// AllocShared allocates a zeroed, aligned block in shared memory.
// Mappings are page aligned, so alignments above the page size are honoured
// by over-mapping and slicing.
func AllocShared(length, alignment int) (*SharedBlock, error) {
	if err := ValidateAlignment(alignment); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, ErrInvalidLength
	}
	if length == 0 {
		return &SharedBlock{data: []byte{}, alignment: alignment}, nil
	}

	size := length
	if alignment > os.Getpagesize() {
		size += alignment
	}
	m, err := mmap.MapShared(size)
	if err != nil {
		return nil, err
	}
	return &SharedBlock{
		data:      alignedSlice(m.Bytes(), length, alignment),
		mapping:   m,
		alignment: alignment,
	}, nil
}

// Bytes returns the block's memory. The slice is invalid after Close.
func (b *SharedBlock) Bytes() []byte {
	if b.closed.Load() {
		return nil
	}
	return b.data
}

// Len returns the usable length in bytes.
func (b *SharedBlock) Len() int { return len(b.data) }

// Alignment returns the alignment the block was allocated with.
func (b *SharedBlock) Alignment() int { return b.alignment }

// Kind always reports Shared.
func (b *SharedBlock) Kind() Kind { return Shared }

// Close unmaps the block. It is idempotent.
func (b *SharedBlock) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.data = nil
	if b.mapping == nil {
		return nil
	}
	return b.mapping.Close()
}
