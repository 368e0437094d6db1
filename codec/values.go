package codec

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/roarguard/internal/simd"
)

// chunkValues is the number of values moved per engine batch call.
const chunkValues = 1024

var chunkPool = sync.Pool{
	New: func() any {
		buf := make([]uint32, chunkValues)
		return &buf
	},
}

func getChunk() *[]uint32 { return chunkPool.Get().(*[]uint32) }

func putChunk(buf *[]uint32) { chunkPool.Put(buf) }

func putLittleEndian(dst []byte, vals []uint32) {
	simd.PutUint32s(dst, vals)
}

// addLittleEndian decodes data (a multiple of 4 bytes) in batches and adds
// the values to rb.
func addLittleEndian(rb *roaring.Bitmap, data []byte) {
	chunk := getChunk()
	defer putChunk(chunk)

	for len(data) > 0 {
		n := min(len(data)/4, chunkValues)
		vals := (*chunk)[:n]
		simd.Uint32s(vals, data[:4*n])
		rb.AddMany(vals)
		data = data[4*n:]
	}
}
