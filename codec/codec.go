package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/roarguard/internal/mem"
)

// CRoaring body tags.
const (
	tagArray    byte = 1
	tagPortable byte = 2
)

// Descriptor bundles the size, encode and decode functions of one format.
// Implementations must be safe for concurrent use on a bitmap that is not
// being mutated.
type Descriptor struct {
	Format       Format
	RequiresCopy bool
	Text         bool

	// ExactSize returns the encoded length. It is a pure function of content.
	ExactSize func(rb *roaring.Bitmap) int
	// Encode writes exactly ExactSize(rb) bytes into dst, which has that length.
	Encode func(rb *roaring.Bitmap, dst []byte) error
	// Decode materializes a bitmap that owns its memory. Nil for text formats.
	Decode func(data []byte) (*roaring.Bitmap, error)
}

var descriptors = func() [JSONArray + 1]*Descriptor {
	var d [JSONArray + 1]*Descriptor
	d[Portable] = &Descriptor{
		ExactSize: portableSize,
		Encode:    encodePortable,
		Decode:    func(data []byte) (*roaring.Bitmap, error) { return decodePortable(Portable, data) },
	}
	d[CRoaring] = &Descriptor{ExactSize: croaringSize, Encode: encodeCRoaring, Decode: decodeCRoaring}
	d[FrozenCRoaring] = &Descriptor{ExactSize: frozenSize, Encode: encodeFrozen, Decode: decodeFrozen}
	d[FrozenPortable] = &Descriptor{
		ExactSize: portableSize,
		Encode:    encodePortable,
		Decode:    func(data []byte) (*roaring.Bitmap, error) { return decodePortable(FrozenPortable, data) },
	}
	d[Uint32Array] = &Descriptor{ExactSize: uint32ArraySize, Encode: encodeUint32Array, Decode: decodeUint32Array}
	for _, f := range []Format{CSV, TSV, NSV, JSONArray} {
		style := textStyleOf(f)
		d[f] = &Descriptor{
			ExactSize: style.size,
			Encode:    style.encode,
		}
	}
	for f := Portable; f <= JSONArray; f++ {
		d[f].Format = f
		d[f].RequiresCopy = f.RequiresCopy()
		d[f].Text = f.Text()
	}
	return d
}()

// Lookup returns the descriptor for f.
func Lookup(f Format) (*Descriptor, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint8(f))
	}
	return descriptors[f], nil
}

// ExactSize returns the number of bytes Encode produces for rb in format f.
func ExactSize(rb *roaring.Bitmap, f Format) (int, error) {
	d, err := Lookup(f)
	if err != nil {
		return 0, err
	}
	return d.ExactSize(rb), nil
}

// Encode encodes rb into a fresh block aligned to mem.DefaultAlignment.
func Encode(rb *roaring.Bitmap, f Format) ([]byte, error) {
	d, err := Lookup(f)
	if err != nil {
		return nil, err
	}
	buf, err := mem.Alloc(d.ExactSize(rb), mem.DefaultAlignment)
	if err != nil {
		return nil, err
	}
	if err := d.Encode(rb, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo encodes rb into the front of dst and returns dst[:n]. If dst is
// shorter than ExactSize it fails with ErrBufferTooSmall and leaves dst untouched.
func EncodeTo(rb *roaring.Bitmap, f Format, dst []byte) ([]byte, error) {
	d, err := Lookup(f)
	if err != nil {
		return nil, err
	}
	n := d.ExactSize(rb)
	if len(dst) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, n, len(dst))
	}
	if err := d.Encode(rb, dst[:n]); err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// Decode materializes a bitmap from data. The result does not reference data.
func Decode(data []byte, f Format) (*roaring.Bitmap, error) {
	d, err := Lookup(f)
	if err != nil {
		return nil, err
	}
	if d.Decode == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotDecodable, f)
	}
	return d.Decode(data)
}

// View interprets data in place. Only the frozen formats are accepted, and
// only header-level structure is validated. The caller must keep data valid
// and unmodified while the bitmap is in use, and must never mutate the result.
func View(data []byte, f Format) (rb *roaring.Bitmap, err error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint8(f))
	}
	defer guard(f, &err)

	switch f {
	case FrozenCRoaring:
		if !mem.IsAligned(data, mem.DefaultAlignment) {
			return nil, fmt.Errorf("%w: %s requires %d-byte alignment", ErrMisaligned, f, mem.DefaultAlignment)
		}
		rb = roaring.New()
		if err := rb.FrozenView(data); err != nil {
			return nil, decodeErr(f, "invalid frozen header", err)
		}
		return rb, nil
	case FrozenPortable:
		if len(data) < 8 {
			return nil, decodeErr(f, fmt.Sprintf("truncated header: %d bytes", len(data)), nil)
		}
		rb = roaring.New()
		if _, err := rb.FromBuffer(data); err != nil {
			return nil, decodeErr(f, "invalid portable header", err)
		}
		return rb, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotViewable, f)
	}
}

func portableSize(rb *roaring.Bitmap) int {
	return int(rb.GetSerializedSizeInBytes())
}

func encodePortable(rb *roaring.Bitmap, dst []byte) error {
	w := fixedWriter{buf: dst}
	if _, err := rb.WriteTo(&w); err != nil {
		return err
	}
	return w.full()
}

func decodePortable(f Format, data []byte) (rb *roaring.Bitmap, err error) {
	defer guard(f, &err)
	if len(data) < 8 {
		return nil, decodeErr(f, fmt.Sprintf("truncated header: %d bytes", len(data)), nil)
	}
	rb = roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return nil, decodeErr(f, "invalid portable body", err)
	}
	return rb, nil
}

// croaringArray reports whether the plain uint32 list is no larger than the
// portable body, which is the layout choice the native engine makes.
func croaringArray(rb *roaring.Bitmap) bool {
	return 4+4*rb.GetCardinality() <= rb.GetSerializedSizeInBytes()
}

func croaringSize(rb *roaring.Bitmap) int {
	if croaringArray(rb) {
		return 1 + 4 + 4*int(rb.GetCardinality())
	}
	return 1 + portableSize(rb)
}

func encodeCRoaring(rb *roaring.Bitmap, dst []byte) error {
	if croaringArray(rb) {
		dst[0] = tagArray
		binary.LittleEndian.PutUint32(dst[1:], uint32(rb.GetCardinality()))
		return encodeUint32Array(rb, dst[5:])
	}
	dst[0] = tagPortable
	return encodePortable(rb, dst[1:])
}

func decodeCRoaring(data []byte) (*roaring.Bitmap, error) {
	if len(data) == 0 {
		return nil, decodeErr(CRoaring, "empty input", nil)
	}
	switch data[0] {
	case tagArray:
		if len(data) < 5 {
			return nil, decodeErr(CRoaring, "truncated array header", nil)
		}
		count := uint64(binary.LittleEndian.Uint32(data[1:5]))
		if need := 5 + 4*count; uint64(len(data)) < need {
			return nil, decodeErr(CRoaring, fmt.Sprintf("truncated array: need %d bytes, have %d", need, len(data)), nil)
		}
		rb := roaring.New()
		addLittleEndian(rb, data[5:5+4*count])
		return rb, nil
	case tagPortable:
		return decodePortable(CRoaring, data[1:])
	default:
		return nil, decodeErr(CRoaring, fmt.Sprintf("unknown body tag %d", data[0]), nil)
	}
}

func frozenSize(rb *roaring.Bitmap) int {
	return int(rb.GetFrozenSizeInBytes())
}

func encodeFrozen(rb *roaring.Bitmap, dst []byte) error {
	n, err := rb.FreezeTo(dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, n, len(dst))
	}
	return nil
}

// decodeFrozen views data and deep-copies the view so the result owns its memory.
func decodeFrozen(data []byte) (*roaring.Bitmap, error) {
	aligned, _, err := mem.EnsureAligned(data, mem.DefaultAlignment)
	if err != nil {
		return nil, err
	}
	view, err := View(aligned, FrozenCRoaring)
	if err != nil {
		return nil, err
	}
	return view.Clone(), nil
}

func uint32ArraySize(rb *roaring.Bitmap) int {
	return 4 * int(rb.GetCardinality())
}

func encodeUint32Array(rb *roaring.Bitmap, dst []byte) error {
	chunk := getChunk()
	defer putChunk(chunk)

	off := 0
	it := rb.ManyIterator()
	for {
		n := it.NextMany(*chunk)
		if n == 0 {
			break
		}
		if off+4*n > len(dst) {
			return ErrSizeMismatch
		}
		putLittleEndian(dst[off:], (*chunk)[:n])
		off += 4 * n
	}
	if off != len(dst) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, off, len(dst))
	}
	return nil
}

func decodeUint32Array(data []byte) (*roaring.Bitmap, error) {
	if len(data)%4 != 0 {
		return nil, decodeErr(Uint32Array, fmt.Sprintf("length %d is not a multiple of 4", len(data)), nil)
	}
	rb := roaring.New()
	addLittleEndian(rb, data)
	return rb, nil
}

// fixedWriter is an io.Writer over a preallocated slice that never grows.
type fixedWriter struct {
	buf []byte
	n   int
}

func (w *fixedWriter) Write(p []byte) (int, error) {
	if len(p) > len(w.buf)-w.n {
		return 0, fmt.Errorf("%w: write of %d bytes exceeds %d remaining", ErrSizeMismatch, len(p), len(w.buf)-w.n)
	}
	w.n += copy(w.buf[w.n:], p)
	return len(p), nil
}

func (w *fixedWriter) full() error {
	if w.n != len(w.buf) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, w.n, len(w.buf))
	}
	return nil
}
