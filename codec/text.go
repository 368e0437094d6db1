package codec

import (
	"fmt"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
)

// pow10 holds the thresholds at which a decimal value gains a digit.
var pow10 = [...]uint64{10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000}

// textStyle describes one separated-values layout.
type textStyle struct {
	sep     byte
	bracket bool
}

func textStyleOf(f Format) textStyle {
	switch f {
	case CSV:
		return textStyle{sep: ','}
	case TSV:
		return textStyle{sep: '\t'}
	case NSV:
		return textStyle{sep: '\n'}
	default:
		return textStyle{sep: ',', bracket: true}
	}
}

// digits returns the total number of decimal digits over all values.
// Rank at each power of ten counts the values below the next digit width.
func digits(rb *roaring.Bitmap) uint64 {
	card := rb.GetCardinality()
	total := card
	for _, p := range pow10 {
		below := rb.Rank(uint32(p - 1))
		if below >= card {
			break
		}
		total += card - below
	}
	return total
}

func (s textStyle) size(rb *roaring.Bitmap) int {
	n := 0
	if s.bracket {
		n = 2
	}
	card := rb.GetCardinality()
	if card == 0 {
		return n
	}
	return n + int(digits(rb)) + int(card-1)
}

// textWriter appends values in one style, tracking whether a separator is due.
type textWriter struct {
	style textStyle
	wrote bool
}

func (w *textWriter) open(dst []byte) []byte {
	if w.style.bracket {
		dst = append(dst, '[')
	}
	return dst
}

func (w *textWriter) values(dst []byte, vals []uint32) []byte {
	for _, v := range vals {
		if w.wrote {
			dst = append(dst, w.style.sep)
		}
		dst = strconv.AppendUint(dst, uint64(v), 10)
		w.wrote = true
	}
	return dst
}

func (w *textWriter) close(dst []byte) []byte {
	if w.style.bracket {
		dst = append(dst, ']')
	}
	return dst
}

// encode fills dst, whose capacity is capped at its length so appends can
// never reallocate silently.
func (s textStyle) encode(rb *roaring.Bitmap, dst []byte) error {
	chunk := getChunk()
	defer putChunk(chunk)

	w := textWriter{style: s}
	out := w.open(dst[:0:len(dst)])
	it := rb.ManyIterator()
	for {
		n := it.NextMany(*chunk)
		if n == 0 {
			break
		}
		out = w.values(out, (*chunk)[:n])
		if len(out) > len(dst) {
			return fmt.Errorf("%w: text output exceeds %d bytes", ErrSizeMismatch, len(dst))
		}
	}
	out = w.close(out)
	if len(out) != len(dst) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, len(out), len(dst))
	}
	return nil
}
