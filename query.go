package roarguard

import (
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// NotFound is returned by IndexOf for absent values.
const NotFound int64 = -1

// defaultContentLen bounds String output.
const defaultContentLen = 256

// Contains reports whether x is present.
func (b *Bitmap) Contains(x uint32) bool {
	defer runtime.KeepAlive(b)
	return b.engine().Contains(x)
}

// Has is Contains for loosely typed input. NaN, infinities, negative,
// fractional and out-of-range values report false.
func (b *Bitmap) Has(v float64) bool {
	defer runtime.KeepAlive(b)
	x, ok := toUint32(v)
	return ok && b.engine().Contains(x)
}

// HasRange reports whether every value in [start, end) is present.
// end is clamped to 2^32; an empty range reports true.
func (b *Bitmap) HasRange(start, end uint64) bool {
	end = min(end, maxRange)
	if start >= end {
		return true
	}
	return b.RangeCardinality(start, end) == end-start
}

// RangeCardinality counts the values in [start, end). end is clamped to 2^32.
func (b *Bitmap) RangeCardinality(start, end uint64) uint64 {
	defer runtime.KeepAlive(b)
	end = min(end, maxRange)
	if start >= end {
		return 0
	}
	rb := b.engine()
	n := rb.Rank(uint32(end - 1))
	if start > 0 {
		n -= rb.Rank(uint32(start - 1))
	}
	return n
}

// Cardinality returns the number of values.
func (b *Bitmap) Cardinality() uint64 {
	defer runtime.KeepAlive(b)
	return b.engine().GetCardinality()
}

// IsEmpty reports whether the bitmap holds no values.
func (b *Bitmap) IsEmpty() bool {
	defer runtime.KeepAlive(b)
	return b.engine().IsEmpty()
}

// Minimum returns the smallest value, or false if empty.
func (b *Bitmap) Minimum() (uint32, bool) {
	defer runtime.KeepAlive(b)
	rb := b.engine()
	if rb.IsEmpty() {
		return 0, false
	}
	return rb.Minimum(), true
}

// Maximum returns the largest value, or false if empty.
func (b *Bitmap) Maximum() (uint32, bool) {
	defer runtime.KeepAlive(b)
	rb := b.engine()
	if rb.IsEmpty() {
		return 0, false
	}
	return rb.Maximum(), true
}

// Rank returns the number of values less than or equal to x.
func (b *Bitmap) Rank(x uint32) uint64 {
	defer runtime.KeepAlive(b)
	return b.engine().Rank(x)
}

// Select returns the i-th smallest value (0-based), or false if i is out of range.
func (b *Bitmap) Select(i uint64) (uint32, bool) {
	defer runtime.KeepAlive(b)
	rb := b.engine()
	if i >= rb.GetCardinality() {
		return 0, false
	}
	v, err := rb.Select(uint32(i))
	if err != nil {
		return 0, false
	}
	return v, true
}

// At is Select with negative indexes counting from the end (-1 is the maximum).
func (b *Bitmap) At(i int64) (uint32, bool) {
	defer runtime.KeepAlive(b)
	if i < 0 {
		card := b.engine().GetCardinality()
		back := uint64(-(i + 1)) + 1
		if back > card {
			return 0, false
		}
		return b.Select(card - back)
	}
	return b.Select(uint64(i))
}

// IndexOf returns the 0-based position of x, or NotFound.
func (b *Bitmap) IndexOf(x uint32) int64 {
	defer runtime.KeepAlive(b)
	rb := b.engine()
	if !rb.Contains(x) {
		return NotFound
	}
	return int64(rb.Rank(x)) - 1
}

// Intersects reports whether the bitmaps share a value.
func (b *Bitmap) Intersects(other *Bitmap) bool {
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(b)
	return b.engine().Intersects(engineOf(other))
}

// IsSubset reports whether every value of b is in other.
func (b *Bitmap) IsSubset(other *Bitmap) bool {
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(b)
	rb := b.engine()
	return rb.AndCardinality(engineOf(other)) == rb.GetCardinality()
}

// IsStrictSubset reports whether b is a subset of other with fewer values.
func (b *Bitmap) IsStrictSubset(other *Bitmap) bool {
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(b)
	return b.IsSubset(other) && b.Cardinality() < engineOf(other).GetCardinality()
}

// Equals reports whether both bitmaps hold the same values.
func (b *Bitmap) Equals(other *Bitmap) bool {
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(b)
	return b.engine().Equals(engineOf(other))
}

// Jaccard returns |b ∩ other| / |b ∪ other|. It is NaN when both are empty.
func (b *Bitmap) Jaccard(other *Bitmap) float64 {
	inter := b.AndCardinality(other)
	union := b.OrCardinality(other)
	if union == 0 {
		return math.NaN()
	}
	return float64(inter) / float64(union)
}

// AndCardinality returns |b ∩ other|.
func (b *Bitmap) AndCardinality(other *Bitmap) uint64 {
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(b)
	return b.engine().AndCardinality(engineOf(other))
}

// OrCardinality returns |b ∪ other|.
func (b *Bitmap) OrCardinality(other *Bitmap) uint64 {
	defer runtime.KeepAlive(other)
	defer runtime.KeepAlive(b)
	return b.engine().OrCardinality(engineOf(other))
}

// XorCardinality returns the size of the symmetric difference.
func (b *Bitmap) XorCardinality(other *Bitmap) uint64 {
	return b.OrCardinality(other) - b.AndCardinality(other)
}

// AndNotCardinality returns |b \ other|.
func (b *Bitmap) AndNotCardinality(other *Bitmap) uint64 {
	return b.Cardinality() - b.AndCardinality(other)
}

// ToArray returns the values in ascending order.
func (b *Bitmap) ToArray() []uint32 {
	defer runtime.KeepAlive(b)
	return b.engine().ToArray()
}

// SizeInBytes estimates the in-memory size of the engine structures.
func (b *Bitmap) SizeInBytes() uint64 {
	defer runtime.KeepAlive(b)
	return b.engine().GetSizeInBytes()
}

// Stats returns container statistics from the engine.
func (b *Bitmap) Stats() roaring.Statistics {
	defer runtime.KeepAlive(b)
	return b.engine().Stats()
}

// String returns the content in JSON array syntax, truncated like ContentString.
func (b *Bitmap) String() string {
	return b.ContentString(defaultContentLen)
}

// ContentString renders values as "[1,2,3]". Once the output would exceed
// maxLen bytes it ends with "...]".
func (b *Bitmap) ContentString(maxLen int) string {
	defer runtime.KeepAlive(b)
	var sb strings.Builder
	sb.WriteByte('[')

	var num [10]byte
	it := b.engine().Iterator()
	first := true
	for it.HasNext() {
		digits := strconv.AppendUint(num[:0], uint64(it.Next()), 10)
		need := len(digits) + 1
		if !first {
			need++
		}
		if sb.Len()+need > maxLen {
			sb.WriteString("...]")
			return sb.String()
		}
		if !first {
			sb.WriteByte(',')
		}
		sb.Write(digits)
		first = false
	}
	sb.WriteByte(']')
	return sb.String()
}

// Clone-style derived results. None of them touch their inputs, so they are
// legal on frozen bitmaps and views.

// Union returns a new bitmap holding every value of every input.
func Union(bs ...*Bitmap) *Bitmap {
	defer runtime.KeepAlive(bs)
	rbs := make([]*roaring.Bitmap, 0, len(bs))
	for _, b := range bs {
		rbs = append(rbs, engineOf(b))
	}
	return wrap(roaring.FastOr(rbs...))
}

// Intersection returns a new bitmap holding values present in both a and b.
func Intersection(a, b *Bitmap) *Bitmap {
	defer runtime.KeepAlive(a)
	defer runtime.KeepAlive(b)
	return wrap(roaring.And(engineOf(a), engineOf(b)))
}

// Difference returns a new bitmap holding values of a absent from b.
func Difference(a, b *Bitmap) *Bitmap {
	defer runtime.KeepAlive(a)
	defer runtime.KeepAlive(b)
	return wrap(roaring.AndNot(engineOf(a), engineOf(b)))
}

// SymmetricDifference returns a new bitmap holding values in exactly one input.
func SymmetricDifference(a, b *Bitmap) *Bitmap {
	defer runtime.KeepAlive(a)
	defer runtime.KeepAlive(b)
	return wrap(roaring.Xor(engineOf(a), engineOf(b)))
}

// engineOf treats nil as the empty set. Like engine, the caller must keep b
// reachable until the engine call returns.
func engineOf(b *Bitmap) *roaring.Bitmap {
	if b == nil {
		return emptyEngine
	}
	return b.engine()
}
