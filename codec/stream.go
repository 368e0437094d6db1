package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// flushThreshold is the amount of buffered text written per Write call.
const flushThreshold = 32 << 10

var scratchPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, flushThreshold+chunkValues*11)
		return &buf
	},
}

// WriteTo streams rb to w in format f and returns the number of bytes
// written. Text and uint32 layouts are produced in chunks without building
// the full output in memory.
func WriteTo(w io.Writer, rb *roaring.Bitmap, f Format) (int64, error) {
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFormat, uint8(f))
	}
	switch {
	case f == Portable || f == FrozenPortable:
		return rb.WriteTo(w)
	case f == CRoaring:
		return writeCRoaring(w, rb)
	case f == Uint32Array:
		return writeUint32Array(w, rb)
	case f.Text():
		return writeText(w, rb, textStyleOf(f))
	default:
		buf, err := Encode(rb, f)
		if err != nil {
			return 0, err
		}
		n, err := w.Write(buf)
		return int64(n), err
	}
}

func writeCRoaring(w io.Writer, rb *roaring.Bitmap) (int64, error) {
	if !croaringArray(rb) {
		n, err := w.Write([]byte{tagPortable})
		if err != nil {
			return int64(n), err
		}
		m, err := rb.WriteTo(w)
		return int64(n) + m, err
	}
	var hdr [5]byte
	hdr[0] = tagArray
	binary.LittleEndian.PutUint32(hdr[1:], uint32(rb.GetCardinality()))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := writeUint32Array(w, rb)
	return int64(n) + m, err
}

func writeUint32Array(w io.Writer, rb *roaring.Bitmap) (int64, error) {
	chunk := getChunk()
	defer putChunk(chunk)
	var raw [4 * chunkValues]byte

	var total int64
	it := rb.ManyIterator()
	for {
		n := it.NextMany(*chunk)
		if n == 0 {
			return total, nil
		}
		putLittleEndian(raw[:], (*chunk)[:n])
		m, err := w.Write(raw[:4*n])
		total += int64(m)
		if err != nil {
			return total, err
		}
	}
}

func writeText(w io.Writer, rb *roaring.Bitmap, style textStyle) (int64, error) {
	chunk := getChunk()
	defer putChunk(chunk)
	scratch := scratchPool.Get().(*[]byte)
	defer scratchPool.Put(scratch)

	var total int64
	flush := func(buf []byte) ([]byte, error) {
		n, err := w.Write(buf)
		total += int64(n)
		return buf[:0], err
	}

	tw := textWriter{style: style}
	buf := tw.open((*scratch)[:0])
	it := rb.ManyIterator()
	var err error
	for {
		n := it.NextMany(*chunk)
		if n == 0 {
			break
		}
		buf = tw.values(buf, (*chunk)[:n])
		if len(buf) >= flushThreshold {
			if buf, err = flush(buf); err != nil {
				return total, err
			}
		}
	}
	buf = tw.close(buf)
	if len(buf) > 0 {
		if buf, err = flush(buf); err != nil {
			return total, err
		}
	}
	*scratch = buf
	return total, nil
}
