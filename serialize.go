package roarguard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/roarguard/codec"
)

// ExactSize returns the number of bytes Serialize produces for b in format f.
func ExactSize(b *Bitmap, f codec.Format) (int, error) {
	defer runtime.KeepAlive(b)
	n, err := codec.ExactSize(engineOf(b), f)
	return n, translateError(err)
}

// Serialize encodes b into a fresh 32-byte aligned block of exactly
// ExactSize bytes. It is a read and works on frozen bitmaps.
func Serialize(b *Bitmap, f codec.Format) ([]byte, error) {
	defer runtime.KeepAlive(b)
	buf, err := codec.Encode(engineOf(b), f)
	if err != nil {
		return nil, translateError(err)
	}
	return buf, nil
}

// SerializeTo encodes b into the front of dst and returns dst[:n]. The result
// shares dst's backing array, so dst may be a window into a larger block.
// If dst is too small nothing is written and an *InvalidArgumentError
// wrapping codec.ErrBufferTooSmall is returned.
func SerializeTo(b *Bitmap, f codec.Format, dst []byte) ([]byte, error) {
	defer runtime.KeepAlive(b)
	out, err := codec.EncodeTo(engineOf(b), f, dst)
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// Deserialize decodes data into a new bitmap that owns its memory. Text
// formats cannot be deserialized.
func Deserialize(data []byte, f codec.Format) (*Bitmap, error) {
	rb, err := codec.Decode(data, f)
	if err != nil {
		return nil, translateError(err)
	}
	return wrap(rb), nil
}

// WriteTo streams b to w in format f. Text formats are written in chunks.
func WriteTo(w io.Writer, b *Bitmap, f codec.Format) (int64, error) {
	defer runtime.KeepAlive(b)
	n, err := codec.WriteTo(w, engineOf(b), f)
	return n, translateError(err)
}

// WriteTo writes b in the portable format. It implements io.WriterTo.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	return WriteTo(w, b, codec.Portable)
}

// ReadFrom replaces the content of b with a portable bitmap read from r.
// It implements io.ReaderFrom and counts as one mutation.
func (b *Bitmap) ReadFrom(r io.Reader) (int64, error) {
	b.initZero()
	if _, err := b.writable("read from"); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), translateError(err)
	}
	return int64(len(data)), b.replace("read from", data, codec.Portable)
}

// MarshalBinary encodes b in the portable format.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	return Serialize(b, codec.Portable)
}

// UnmarshalBinary replaces the content of b with portable data.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	return b.replace("unmarshal", data, codec.Portable)
}

// MarshalJSON encodes b as a JSON array of numbers.
func (b *Bitmap) MarshalJSON() ([]byte, error) {
	return Serialize(b, codec.JSONArray)
}

// UnmarshalJSON replaces the content of b with the values of a JSON array.
// Every element must be an integer (or decimal string) in [0, 2^32);
// otherwise a *DeserializationError is returned and b is left untouched.
func (b *Bitmap) UnmarshalJSON(data []byte) error {
	b.initZero()
	if _, err := b.writable("unmarshal json"); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var vals []any
	if err := dec.Decode(&vals); err != nil {
		return &DeserializationError{Format: codec.JSONArray, Msg: err.Error(), cause: err}
	}
	decoded := roaring.New()
	for i, v := range vals {
		x, ok := coerce(v)
		if !ok {
			return &DeserializationError{
				Format: codec.JSONArray,
				Msg:    fmt.Sprintf("element %d (%v) is not a value in [0, 2^32)", i, v),
			}
		}
		decoded.Add(x)
	}
	return b.mutate("unmarshal json", func(rb *roaring.Bitmap) {
		rb.Clear()
		rb.Or(decoded)
	})
}

// replace decodes data and swaps it in as the new content. Decoding happens
// before the mutation, so a malformed input leaves b untouched.
func (b *Bitmap) replace(op string, data []byte, f codec.Format) error {
	b.initZero()
	if _, err := b.writable(op); err != nil {
		return err
	}
	decoded, err := Deserialize(data, f)
	if err != nil {
		return err
	}
	return b.mutate(op, func(rb *roaring.Bitmap) {
		rb.Clear()
		rb.Or(decoded.engine())
	})
}

// initZero gives a zero Bitmap, such as one allocated by encoding/json, an
// empty engine so it can be decoded into.
func (b *Bitmap) initZero() {
	if b.h == nil && b.source == nil {
		b.h = newHandle(roaring.New())
	}
}
