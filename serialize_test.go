package roarguard

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/mem"
)

func sampleBitmaps() map[string]*Bitmap {
	return map[string]*Bitmap{
		"empty":  New(),
		"small":  New(Values(1, 2, 3)),
		"sparse": New(Values(0, 70000, 1<<20, 1<<31, 1<<32-1)),
		"dense":  New(Range(0, 100000)),
		"runs":   func() *Bitmap { b := New(Range(10, 5000), Range(1<<20, 1<<20+3000)); _ = b.RunOptimize(); return b }(),
	}
}

func binaryFormats() []codec.Format {
	var out []codec.Format
	for _, f := range codec.Formats() {
		if !f.Text() {
			out = append(out, f)
		}
	}
	return out
}

func TestSerialize_RoundTrip(t *testing.T) {
	for name, b := range sampleBitmaps() {
		for _, f := range binaryFormats() {
			t.Run(name+"/"+f.String(), func(t *testing.T) {
				data, err := Serialize(b, f)
				require.NoError(t, err)
				assert.True(t, mem.IsAligned(data, mem.DefaultAlignment))

				got, err := Deserialize(data, f)
				require.NoError(t, err)
				assert.True(t, got.Equals(b))
				assert.Equal(t, Owned, got.Ownership())
				assert.Equal(t, uint64(0), got.Version())
			})
		}
	}
}

func TestExactSize_MatchesSerialize(t *testing.T) {
	for name, b := range sampleBitmaps() {
		for _, f := range codec.Formats() {
			n, err := ExactSize(b, f)
			require.NoError(t, err)
			data, err := Serialize(b, f)
			require.NoError(t, err)
			assert.Len(t, data, n, "%s/%s", name, f)

			var buf bytes.Buffer
			written, err := WriteTo(&buf, b, f)
			require.NoError(t, err)
			assert.Equal(t, int64(n), written, "%s/%s", name, f)
			assert.True(t, bytes.Equal(data, buf.Bytes()), "%s/%s", name, f)
		}
	}
}

func TestSerialize_EmptyPortable(t *testing.T) {
	data, err := Serialize(New(), codec.Portable)
	require.NoError(t, err)
	assert.Len(t, data, 8)
}

func TestSerialize_Text(t *testing.T) {
	b := New(Values(1, 20, 300))
	tests := map[codec.Format]string{
		codec.CSV:       "1,20,300",
		codec.TSV:       "1\t20\t300",
		codec.NSV:       "1\n20\n300",
		codec.JSONArray: "[1,20,300]",
	}
	for f, want := range tests {
		data, err := Serialize(b, f)
		require.NoError(t, err)
		assert.Equal(t, want, string(data), f.String())

		_, err = Deserialize(data, f)
		assert.ErrorIs(t, err, ErrInvalidArgument, f.String())
	}

	data, err := Serialize(New(), codec.JSONArray)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSerializeTo(t *testing.T) {
	b := New(Values(1, 2, 3))
	n, err := ExactSize(b, codec.Portable)
	require.NoError(t, err)

	block := make([]byte, n+16)
	out, err := SerializeTo(b, codec.Portable, block[8:])
	require.NoError(t, err)
	assert.Len(t, out, n)
	assert.Same(t, &block[8], &out[0])

	got, err := Deserialize(block[8:8+n], codec.Portable)
	require.NoError(t, err)
	assert.True(t, got.Equals(b))

	small := make([]byte, n-1)
	_, err = SerializeTo(b, codec.Portable, small)
	var iae *InvalidArgumentError
	require.ErrorAs(t, err, &iae)
	assert.ErrorIs(t, err, codec.ErrBufferTooSmall)
	assert.Equal(t, make([]byte, n-1), small)
}

func TestSerialize_UnknownFormat(t *testing.T) {
	_, err := Serialize(New(), codec.Format(200))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ExactSize(New(), codec.Format(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeserialize_Malformed(t *testing.T) {
	for _, f := range []codec.Format{codec.Portable, codec.CRoaring, codec.FrozenPortable} {
		_, err := Deserialize([]byte{0xff, 0xff}, f)
		var dse *DeserializationError
		require.ErrorAs(t, err, &dse, f.String())
		assert.Equal(t, f, dse.Format)
	}
}

func TestBitmap_BinaryMarshaling(t *testing.T) {
	b := New(Values(4, 5, 6))
	data, err := b.MarshalBinary()
	require.NoError(t, err)

	other := New(Values(99))
	require.NoError(t, other.UnmarshalBinary(data))
	assert.Equal(t, []uint32{4, 5, 6}, other.ToArray())
	assert.Equal(t, uint64(1), other.Version())

	// Malformed input leaves the receiver untouched.
	assert.ErrorIs(t, other.UnmarshalBinary([]byte{1}), ErrDeserialization)
	assert.Equal(t, []uint32{4, 5, 6}, other.ToArray())
	assert.Equal(t, uint64(1), other.Version())
}

func TestBitmap_WriteToReadFrom(t *testing.T) {
	b := New(Range(0, 1000))
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	got := New()
	_, err = got.ReadFrom(&buf)
	require.NoError(t, err)
	assert.True(t, got.Equals(b))
}

func TestBitmap_JSON(t *testing.T) {
	type doc struct {
		IDs *Bitmap `json:"ids"`
	}
	in := doc{IDs: New(Values(3, 1, 2))}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":[1,2,3]}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []uint32{1, 2, 3}, out.IDs.ToArray())

	b := New(Values(42))
	require.NoError(t, b.UnmarshalJSON([]byte(`[9, "7", 1, 4294967295]`)))
	assert.Equal(t, []uint32{1, 7, 9, 4294967295}, b.ToArray())
	version := b.Version()

	for _, bad := range []string{`{`, `[1, 2.5]`, `[-1]`, `[null]`, `[4294967296]`, `["x"]`, `[[1]]`} {
		err := b.UnmarshalJSON([]byte(bad))
		var de *DeserializationError
		require.ErrorAs(t, err, &de, bad)
		assert.Equal(t, codec.JSONArray, de.Format, bad)
		assert.Equal(t, []uint32{1, 7, 9, 4294967295}, b.ToArray(), bad)
		assert.Equal(t, version, b.Version(), bad)
	}
}
