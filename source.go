package roarguard

import (
	"encoding/json"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Source is one input to New or AddFrom. Each variant has its own
// conversion; none of them fail, invalid values are dropped.
type Source interface {
	addTo(rb *roaring.Bitmap)
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type valuesSource []uint32

func (s valuesSource) addTo(rb *roaring.Bitmap) { rb.AddMany(s) }

// Values is a source of exact uint32 values.
func Values(vals ...uint32) Source { return valuesSource(vals) }

type intsSource[T integer] []T

func (s intsSource[T]) addTo(rb *roaring.Bitmap) {
	for _, v := range s {
		if x, ok := intToUint32(v); ok {
			rb.Add(x)
		}
	}
}

// Ints is a source of integers of any width. Values outside [0, 2^32) are ignored.
func Ints[T integer](vals []T) Source { return intsSource[T](vals) }

func intToUint32[T integer](v T) (uint32, bool) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

type floatsSource []float64

func (s floatsSource) addTo(rb *roaring.Bitmap) {
	for _, v := range s {
		if x, ok := toUint32(v); ok {
			rb.Add(x)
		}
	}
}

// Floats is a source of float64 values. NaN, infinities, negative,
// fractional and out-of-range values are dropped.
func Floats(vals []float64) Source { return floatsSource(vals) }

// toUint32 accepts only whole numbers in [0, 2^32).
func toUint32(v float64) (uint32, bool) {
	if math.IsNaN(v) || v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
		return 0, false
	}
	return uint32(v), true
}

type anySource []any

func (s anySource) addTo(rb *roaring.Bitmap) {
	for _, v := range s {
		if x, ok := coerce(v); ok {
			rb.Add(x)
		}
	}
}

// Any is a source of loosely typed values, such as decoded JSON. Numeric
// kinds, json.Number and decimal strings are coerced; everything else is dropped.
func Any(vals []any) Source { return anySource(vals) }

func coerce(v any) (uint32, bool) {
	switch x := v.(type) {
	case int:
		return intToUint32(x)
	case int8:
		return intToUint32(x)
	case int16:
		return intToUint32(x)
	case int32:
		return intToUint32(x)
	case int64:
		return intToUint32(x)
	case uint:
		return intToUint32(x)
	case uint8:
		return intToUint32(x)
	case uint16:
		return intToUint32(x)
	case uint32:
		return x, true
	case uint64:
		return intToUint32(x)
	case float32:
		return toUint32(float64(x))
	case float64:
		return toUint32(x)
	case json.Number:
		return parseUint32(string(x))
	case string:
		return parseUint32(x)
	default:
		return 0, false
	}
}

func parseUint32(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return toUint32(f)
}

type seqSource iter.Seq[uint32]

func (s seqSource) addTo(rb *roaring.Bitmap) {
	for v := range s {
		rb.Add(v)
	}
}

// Seq is a source backed by an iterator.
func Seq(seq iter.Seq[uint32]) Source {
	if seq == nil {
		return nil
	}
	return seqSource(seq)
}

type rangeSource struct{ start, end uint64 }

func (s rangeSource) addTo(rb *roaring.Bitmap) {
	end := min(s.end, maxRange)
	if s.start < end {
		rb.AddRange(s.start, end)
	}
}

// Range is a source of every value in [start, end). end is clamped to 2^32.
func Range(start, end uint64) Source { return rangeSource{start: start, end: end} }

type copySource struct{ b *Bitmap }

func (s copySource) addTo(rb *roaring.Bitmap) { rb.Or(s.b.engine()) }

// Copy is a source holding the current content of b. The new bitmap is
// independent: own memory, version 0, unfrozen.
func Copy(b *Bitmap) Source {
	if b == nil {
		return nil
	}
	return copySource{b: b}
}
