package roarguard

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/roarguard/internal/freeze"
)

// maxRange is the exclusive upper bound of the 32-bit value space.
const maxRange = uint64(1) << 32

// Bitmap is a compressed set of uint32 values guarded by a mutation lock.
//
// Every structurally mutating method fails with a *FrozenStateError while
// the bitmap is frozen and leaves content and Version untouched. Otherwise
// it makes exactly one engine call and increments Version by one, even
// when the call changed nothing.
//
// Create bitmaps with New or one of the decoding functions. A zero Bitmap
// may only be decoded into (UnmarshalJSON, UnmarshalBinary, ReadFrom).
//
// A Bitmap is meant to be driven from one goroutine. Offloaded operations
// (see Executor) freeze it for their duration, so they may run concurrently
// with reads but never with writes.
type Bitmap struct {
	h    *handle
	lock freeze.Lock

	// source is set on derived read-only views.
	source *Bitmap
	// readOnly caches the derived view of this bitmap.
	readOnly atomic.Pointer[Bitmap]
	closed   atomic.Bool
}

// New returns a bitmap holding the union of srcs. With no sources it is empty.
// Invalid input values are dropped, never reported.
func New(srcs ...Source) *Bitmap {
	// Copy sources may alias a view's mapping until wrap detaches rb.
	defer runtime.KeepAlive(srcs)
	rb := roaring.New()
	for _, src := range srcs {
		if src != nil {
			src.addTo(rb)
		}
	}
	return wrap(rb)
}

// FromRange returns a bitmap holding start, start+step, ... below end.
func FromRange(start, end uint64, step uint32) (*Bitmap, error) {
	if step == 0 {
		return nil, invalidArg("step", "must be at least 1")
	}
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	rb := roaring.New()
	if step == 1 {
		rb.AddRange(start, end)
		return wrap(rb), nil
	}
	for v := start; v < end; v += uint64(step) {
		rb.Add(uint32(v))
	}
	return wrap(rb), nil
}

// wrap takes ownership of rb. Containers still shared copy-on-write with a
// view's bytes are copied first, so the result never aliases foreign memory.
func wrap(rb *roaring.Bitmap) *Bitmap {
	rb.CloneCopyOnWriteContainers()
	return &Bitmap{h: newHandle(rb)}
}

func checkRange(start, end uint64) error {
	if end > maxRange {
		return invalidArg("end", fmt.Sprintf("%d exceeds 2^32", end))
	}
	if start > end {
		return invalidArg("start", fmt.Sprintf("%d is greater than end %d", start, end))
	}
	return nil
}

// handle resolves the live handle; derived views follow their source.
func (b *Bitmap) handle() *handle {
	if b.source != nil {
		if b.closed.Load() {
			return closedHandle
		}
		return b.source.handle()
	}
	return b.h
}

// engine returns the live engine. The engine of a mapped view reads the
// mapping, which a GC cleanup on the handle unmaps, so callers must keep b
// reachable (runtime.KeepAlive) until they are done with the engine.
func (b *Bitmap) engine() *roaring.Bitmap { return b.handle().engine() }

// holdLock is the lock offloaded operations freeze. A derived view shares
// memory with its source, so holds go to the source.
func (b *Bitmap) holdLock() *freeze.Lock {
	if b.source != nil {
		return b.source.holdLock()
	}
	return &b.lock
}

func (b *Bitmap) frozenError(op string, cause error) error {
	return &FrozenStateError{Op: op, Depth: b.lock.Depth(), Sealed: b.lock.Sealed(), cause: cause}
}

// writable returns the handle for a mutation, or the reason it is refused.
func (b *Bitmap) writable(op string) (*handle, error) {
	if err := b.lock.Check(); err != nil {
		return nil, b.frozenError(op, err)
	}
	h := b.handle()
	if h.isClosed() {
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return h, nil
}

// mutate runs one engine call under the mutation contract.
func (b *Bitmap) mutate(op string, fn func(rb *roaring.Bitmap)) error {
	h, err := b.writable(op)
	if err != nil {
		return err
	}
	fn(h.engine())
	h.bump()
	return nil
}

// Add inserts x.
func (b *Bitmap) Add(x uint32) error {
	return b.mutate("add", func(rb *roaring.Bitmap) { rb.Add(x) })
}

// TryAdd inserts x and reports whether it was absent.
func (b *Bitmap) TryAdd(x uint32) (added bool, err error) {
	err = b.mutate("add", func(rb *roaring.Bitmap) { added = rb.CheckedAdd(x) })
	return added, err
}

// AddMany inserts all values.
func (b *Bitmap) AddMany(vals ...uint32) error {
	return b.mutate("add many", func(rb *roaring.Bitmap) { rb.AddMany(vals) })
}

// AddFrom inserts the values of every source, coercing them like New does.
func (b *Bitmap) AddFrom(srcs ...Source) error {
	return b.mutate("add from", func(rb *roaring.Bitmap) {
		for _, src := range srcs {
			if src != nil {
				src.addTo(rb)
			}
		}
		rb.CloneCopyOnWriteContainers()
		runtime.KeepAlive(srcs)
	})
}

// Remove deletes x.
func (b *Bitmap) Remove(x uint32) error {
	return b.mutate("remove", func(rb *roaring.Bitmap) { rb.Remove(x) })
}

// TryRemove deletes x and reports whether it was present.
func (b *Bitmap) TryRemove(x uint32) (removed bool, err error) {
	err = b.mutate("remove", func(rb *roaring.Bitmap) { removed = rb.CheckedRemove(x) })
	return removed, err
}

// RemoveMany deletes all values.
func (b *Bitmap) RemoveMany(vals ...uint32) error {
	return b.mutate("remove many", func(rb *roaring.Bitmap) {
		for _, v := range vals {
			rb.Remove(v)
		}
	})
}

// AddRange inserts every value in [start, end). end may be at most 2^32.
func (b *Bitmap) AddRange(start, end uint64) error {
	return b.rangeMutation("add range", start, end, (*roaring.Bitmap).AddRange)
}

// RemoveRange deletes every value in [start, end).
func (b *Bitmap) RemoveRange(start, end uint64) error {
	return b.rangeMutation("remove range", start, end, (*roaring.Bitmap).RemoveRange)
}

// FlipRange toggles every value in [start, end).
func (b *Bitmap) FlipRange(start, end uint64) error {
	return b.rangeMutation("flip range", start, end, (*roaring.Bitmap).Flip)
}

func (b *Bitmap) rangeMutation(op string, start, end uint64, fn func(rb *roaring.Bitmap, start, end uint64)) error {
	h, err := b.writable(op)
	if err != nil {
		return err
	}
	if err := checkRange(start, end); err != nil {
		return err
	}
	fn(h.engine(), start, end)
	h.bump()
	return nil
}

// Clear removes every value.
func (b *Bitmap) Clear() error {
	return b.mutate("clear", (*roaring.Bitmap).Clear)
}

// RunOptimize converts containers to run-length encoding where smaller.
// Content is unchanged but containers are reallocated, so it counts as a mutation.
func (b *Bitmap) RunOptimize() error {
	return b.mutate("run optimize", (*roaring.Bitmap).RunOptimize)
}

// Or adds every value of other in place. Only the receiver must be unfrozen.
func (b *Bitmap) Or(other *Bitmap) error {
	return b.combine("or", other, (*roaring.Bitmap).Or, false)
}

// And keeps only values also in other.
func (b *Bitmap) And(other *Bitmap) error {
	return b.combine("and", other, (*roaring.Bitmap).And, false)
}

// Xor keeps values in exactly one of the two bitmaps.
func (b *Bitmap) Xor(other *Bitmap) error {
	return b.combine("xor", other, (*roaring.Bitmap).Xor, true)
}

// AndNot removes every value of other.
func (b *Bitmap) AndNot(other *Bitmap) error {
	return b.combine("and not", other, (*roaring.Bitmap).AndNot, true)
}

// combine applies an in-place boolean operation. When other shares the
// receiver's engine, the result is known without reading while writing.
func (b *Bitmap) combine(op string, other *Bitmap, fn func(rb, other *roaring.Bitmap), selfClears bool) error {
	if other == nil {
		return invalidArg("other", "must not be nil")
	}
	h, err := b.writable(op)
	if err != nil {
		return err
	}
	rb, orb := h.engine(), other.engine()
	switch {
	case rb != orb:
		fn(rb, orb)
		rb.CloneCopyOnWriteContainers()
	case selfClears:
		rb.Clear()
	}
	runtime.KeepAlive(other)
	h.bump()
	return nil
}

// Swap exchanges the contents of a and b. Both must be unfrozen; neither is
// touched otherwise. Both versions move.
func Swap(a, b *Bitmap) error {
	if a == nil || b == nil {
		return invalidArg("bitmap", "must not be nil")
	}
	if err := a.lock.Check(); err != nil {
		return a.frozenError("swap", err)
	}
	if err := b.lock.Check(); err != nil {
		return b.frozenError("swap", err)
	}
	if a.handle().isClosed() || b.handle().isClosed() {
		return fmt.Errorf("swap: %w", ErrClosed)
	}
	if a == b {
		a.h.bump()
		return nil
	}
	a.h, b.h = b.h, a.h
	a.h.bump()
	b.h.bump()
	return nil
}

// Freeze permanently freezes the bitmap until Unfreeze. It is idempotent.
func (b *Bitmap) Freeze() {
	b.lock.Freeze()
}

// Unfreeze clears a permanent freeze. Offloaded operations still running
// keep the bitmap frozen until they finish. Views cannot be unfrozen.
func (b *Bitmap) Unfreeze() error {
	if err := b.lock.Unfreeze(); err != nil {
		return b.frozenError("unfreeze", err)
	}
	return nil
}

// IsFrozen reports whether mutations are currently refused.
func (b *Bitmap) IsFrozen() bool {
	return b.lock.IsFrozen()
}

// FrozenDepth returns outstanding offloaded holds plus one for a permanent freeze.
func (b *Bitmap) FrozenDepth() int {
	return b.lock.Depth()
}

// Version returns the mutation counter. It starts at 0 and increases by one
// per mutating call.
func (b *Bitmap) Version() uint64 {
	return b.handle().version.Load()
}

// Ownership reports who owns the bitmap's engine memory.
func (b *Bitmap) Ownership() Ownership {
	if b.source != nil {
		return Derived
	}
	return b.h.kind
}

// Clone returns an unfrozen deep copy with its own memory and version 0.
func (b *Bitmap) Clone() *Bitmap {
	defer runtime.KeepAlive(b)
	return wrap(b.engine().Clone())
}

// ReadOnly returns the derived read-only view of b. The view reads b's live
// content, is always frozen, and is the same object on every call.
func (b *Bitmap) ReadOnly() *Bitmap {
	if b.source != nil {
		return b
	}
	if v := b.readOnly.Load(); v != nil {
		return v
	}
	v := &Bitmap{source: b}
	v.lock.Seal()
	if !b.readOnly.CompareAndSwap(nil, v) {
		return b.readOnly.Load()
	}
	return v
}

// Close releases the engine handle. Mapped memory is unmapped; borrowed
// bytes are only unreferenced. A closed bitmap reads as empty and refuses
// mutations with ErrClosed. Close fails while an offloaded operation holds
// the bitmap. Closing a derived view detaches only the view.
func (b *Bitmap) Close() error {
	if b.source != nil {
		b.closed.Store(true)
		return nil
	}
	if holds := b.lock.Holds(); holds > 0 {
		return &FrozenStateError{Op: "close", Depth: b.lock.Depth(), Sealed: b.lock.Sealed()}
	}
	return ioError("close", "", b.h.close())
}
