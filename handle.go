package roarguard

import (
	"io"
	"runtime"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
)

// Ownership describes who owns the memory behind a bitmap's engine handle.
type Ownership uint8

const (
	// Owned engine memory lives on the Go heap and belongs to the bitmap.
	Owned Ownership = iota
	// Borrowed engine memory aliases caller bytes that are never freed.
	Borrowed
	// Mapped engine memory aliases a file mapping the bitmap unmaps on Close.
	Mapped
	// Derived bitmaps share the live handle of another bitmap.
	Derived
)

// String returns the string representation of an Ownership.
func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case Mapped:
		return "mapped"
	case Derived:
		return "derived"
	default:
		return "unknown"
	}
}

// emptyEngine backs closed handles. It is never mutated.
var emptyEngine = roaring.New()

// handle exclusively owns one engine bitmap plus its mutation counter.
type handle struct {
	rb      atomic.Pointer[roaring.Bitmap]
	version atomic.Uint64
	kind    Ownership
	closed  atomic.Bool

	// keep pins borrowed bytes while the engine reads from them.
	keep []byte
	// mapping is unmapped on close or, failing that, by a GC cleanup.
	mapping io.Closer
	cleanup runtime.Cleanup
}

// closedHandle stands in for derived views that were closed.
var closedHandle = func() *handle {
	h := &handle{kind: Derived}
	h.rb.Store(emptyEngine)
	h.closed.Store(true)
	return h
}()

func newHandle(rb *roaring.Bitmap) *handle {
	h := &handle{kind: Owned}
	h.rb.Store(rb)
	return h
}

func borrowedHandle(rb *roaring.Bitmap, keep []byte) *handle {
	h := &handle{kind: Borrowed, keep: keep}
	h.rb.Store(rb)
	return h
}

func mappedHandle(rb *roaring.Bitmap, keep []byte, mapping io.Closer) *handle {
	h := &handle{kind: Mapped, keep: keep, mapping: mapping}
	h.rb.Store(rb)
	// The cleanup must not reference h, only the mapping it releases.
	h.cleanup = runtime.AddCleanup(h, func(m io.Closer) { _ = m.Close() }, mapping)
	return h
}

func (h *handle) engine() *roaring.Bitmap { return h.rb.Load() }

func (h *handle) bump() { h.version.Add(1) }

func (h *handle) isClosed() bool { return h.closed.Load() }

// close releases what the handle owns. Borrowed bytes are only unreferenced.
// The version moves so live cursors stop before touching released memory.
func (h *handle) close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.rb.Store(emptyEngine)
	h.bump()
	h.keep = nil
	if h.mapping == nil {
		return nil
	}
	h.cleanup.Stop()
	m := h.mapping
	h.mapping = nil
	return m.Close()
}
