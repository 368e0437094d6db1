package roarguard

import (
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultCursorBuffer is the number of values a cursor decodes per fill when
// the caller does not supply a buffer.
const DefaultCursorBuffer = 1024

// Direction is the order a cursor walks values in.
type Direction uint8

const (
	// Forward walks values in ascending order.
	Forward Direction = iota
	// Backward walks values in descending order.
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

type cursorState uint8

const (
	cursorUninitialized cursorState = iota
	cursorActive
	cursorExhausted
	cursorFailed
)

var cursorBuffers = sync.Pool{
	New: func() any {
		buf := make([]uint32, DefaultCursorBuffer)
		return &buf
	},
}

type cursorOptions struct {
	dir    Direction
	buf    []uint32
	bufSet bool
}

// CursorOption configures a Cursor.
type CursorOption func(*cursorOptions)

// WithBuffer makes the cursor decode into buf instead of a pooled buffer.
// buf must hold at least one value and must not be used elsewhere until the
// cursor is done.
func WithBuffer(buf []uint32) CursorOption {
	return func(o *cursorOptions) {
		o.buf = buf
		o.bufSet = true
	}
}

// Reverse makes the cursor walk from the largest value down.
func Reverse() CursorOption {
	return func(o *cursorOptions) {
		o.dir = Backward
	}
}

// Cursor walks a bitmap in buffered batches, scanner style:
//
//	c, _ := b.Cursor()
//	for c.Next() {
//		use(c.Value())
//	}
//	if err := c.Err(); err != nil { ... }
//
// The bitmap's version is captured by the first Next. Any later mutation of
// the bitmap makes the following Next fail with *IterationInvalidatedError.
type Cursor struct {
	h      *handle
	dir    Direction
	buf    []uint32
	pooled *[]uint32

	fwd roaring.ManyIntIterable
	rev roaring.IntIterable

	pos, n   int
	captured uint64
	state    cursorState
	value    uint32
	err      error
}

// Cursor returns a cursor over b. Nothing is decoded until the first Next.
func (b *Bitmap) Cursor(opts ...CursorOption) (*Cursor, error) {
	var o cursorOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.bufSet && len(o.buf) == 0 {
		return nil, invalidArg("buffer", "must hold at least one value")
	}

	c := &Cursor{h: b.handle(), dir: o.dir, buf: o.buf}
	if !o.bufSet {
		c.pooled = cursorBuffers.Get().(*[]uint32)
		c.buf = *c.pooled
	}
	return c, nil
}

// ReverseCursor is shorthand for b.Cursor(Reverse()).
func (b *Bitmap) ReverseCursor(opts ...CursorOption) (*Cursor, error) {
	return b.Cursor(append(opts, Reverse())...)
}

// Direction returns the direction the cursor walks in.
func (c *Cursor) Direction() Direction { return c.dir }

// Next advances to the next value. It returns false when the walk is over,
// either because all values were seen or because Err is set.
func (c *Cursor) Next() bool {
	switch c.state {
	case cursorExhausted, cursorFailed:
		return false
	case cursorUninitialized:
		c.captured = c.h.version.Load()
		c.start()
		c.state = cursorActive
	default:
		if !c.check() {
			return false
		}
	}

	if c.pos == c.n && !c.fill() {
		return false
	}
	c.value = c.buf[c.pos]
	c.pos++
	return true
}

// Value returns the value Next moved to.
func (c *Cursor) Value() uint32 { return c.value }

// Err returns the reason the walk stopped early, or nil.
func (c *Cursor) Err() error { return c.err }

// NextMany copies up to len(dst) of the next values into dst and returns how
// many it copied. Zero with a nil error means the walk is over.
func (c *Cursor) NextMany(dst []uint32) (int, error) {
	if len(dst) == 0 {
		return 0, c.err
	}
	switch c.state {
	case cursorExhausted:
		return 0, nil
	case cursorFailed:
		return 0, c.err
	case cursorUninitialized:
		c.captured = c.h.version.Load()
		c.start()
		c.state = cursorActive
	default:
		if !c.check() {
			return 0, c.err
		}
	}

	if c.pos == c.n && !c.fill() {
		return 0, c.err
	}
	n := copy(dst, c.buf[c.pos:c.n])
	c.pos += n
	c.value = dst[n-1]
	return n, nil
}

// All returns an iterator over the remaining values. If the walk fails, the
// last pair yielded carries the error.
func (c *Cursor) All() iter.Seq2[uint32, error] {
	return func(yield func(uint32, error) bool) {
		for c.Next() {
			if !yield(c.value, nil) {
				return
			}
		}
		if c.err != nil {
			yield(0, c.err)
		}
	}
}

// Close ends the walk and releases the buffer. It is safe to call at any time.
func (c *Cursor) Close() {
	if c.state == cursorUninitialized || c.state == cursorActive {
		c.state = cursorExhausted
	}
	c.release()
}

func (c *Cursor) start() {
	rb := c.h.engine()
	if c.dir == Backward {
		c.rev = rb.ReverseIterator()
	} else {
		c.fwd = rb.ManyIterator()
	}
}

// check fails the cursor when the bitmap moved past the captured version.
func (c *Cursor) check() bool {
	if current := c.h.version.Load(); current != c.captured {
		c.err = &IterationInvalidatedError{Captured: c.captured, Current: current}
		c.state = cursorFailed
		c.release()
		return false
	}
	return true
}

// fill decodes the next batch. A batch of zero values exhausts the cursor.
func (c *Cursor) fill() bool {
	c.pos, c.n = 0, 0
	if c.dir == Backward {
		for c.n < len(c.buf) && c.rev.HasNext() {
			c.buf[c.n] = c.rev.Next()
			c.n++
		}
	} else {
		c.n = c.fwd.NextMany(c.buf)
	}
	if c.n == 0 {
		c.state = cursorExhausted
		c.release()
		return false
	}
	return true
}

func (c *Cursor) release() {
	if c.pooled != nil {
		cursorBuffers.Put(c.pooled)
		c.pooled = nil
	}
	c.buf = nil
	c.fwd, c.rev = nil, nil
	c.pos, c.n = 0, 0
	c.h = closedHandle
}
