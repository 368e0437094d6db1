package mem

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrOf(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

func TestAlloc(t *testing.T) {
	sizes := []int{1, 10, 31, 32, 33, 63, 64, 65, 100, 1024}
	alignments := []int{1, 2, 16, 32, 64, 256, 4096}

	for _, alignment := range alignments {
		for _, size := range sizes {
			buf, err := Alloc(size, alignment)
			require.NoError(t, err)
			assert.Len(t, buf, size)
			assert.Equal(t, uintptr(0), addrOf(buf)%uintptr(alignment), "size %d alignment %d", size, alignment)
			for _, b := range buf {
				require.Zero(t, b)
			}
		}
	}
}

func TestAlloc_ZeroLength(t *testing.T) {
	buf, err := Alloc(0, DefaultAlignment)
	require.NoError(t, err)
	assert.NotNil(t, buf)
	assert.Empty(t, buf)
	assert.True(t, IsAligned(buf, DefaultAlignment))
}

func TestAlloc_InvalidArguments(t *testing.T) {
	for _, alignment := range []int{0, -1, 3, 24, 48, 100} {
		_, err := Alloc(8, alignment)
		assert.ErrorIs(t, err, ErrInvalidAlignment, "alignment %d", alignment)
	}
	_, err := Alloc(-1, 32)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestAllocUnsafe_Recycle(t *testing.T) {
	buf, err := AllocUnsafe(1000, 64)
	require.NoError(t, err)
	assert.Len(t, buf, 1000)
	assert.True(t, IsAligned(buf, 64))
	for i := range buf {
		buf[i] = 0xAB
	}
	Recycle(buf)

	// Whatever comes back must still honour length and alignment.
	again, err := AllocUnsafe(200, 32)
	require.NoError(t, err)
	assert.Len(t, again, 200)
	assert.True(t, IsAligned(again, 32))
}

func TestEnsureAligned(t *testing.T) {
	for _, alignment := range []int{16, 32, 64, 256} {
		t.Run(fmt.Sprintf("alignment=%d", alignment), func(t *testing.T) {
			aligned, err := Alloc(100, alignment)
			require.NoError(t, err)
			for i := range aligned {
				aligned[i] = byte(i)
			}

			out, copied, err := EnsureAligned(aligned, alignment)
			require.NoError(t, err)
			assert.False(t, copied)
			assert.Equal(t, addrOf(aligned), addrOf(out))

			raw, err := Alloc(101, alignment)
			require.NoError(t, err)
			misaligned := raw[1:]
			for i := range misaligned {
				misaligned[i] = byte(i * 3)
			}
			snapshot := append([]byte(nil), misaligned...)

			out, copied, err = EnsureAligned(misaligned, alignment)
			require.NoError(t, err)
			assert.True(t, copied)
			assert.NotEqual(t, addrOf(misaligned), addrOf(out))
			assert.True(t, IsAligned(out, alignment))
			assert.Equal(t, snapshot, out)
			assert.Equal(t, snapshot, misaligned, "input must not be modified")
		})
	}
}

func TestEnsureAligned_InvalidAlignment(t *testing.T) {
	_, _, err := EnsureAligned([]byte{1, 2, 3}, 12)
	assert.ErrorIs(t, err, ErrInvalidAlignment)
}

func TestAllocShared(t *testing.T) {
	block, err := AllocShared(4096, 64)
	require.NoError(t, err)
	defer block.Close()

	assert.Equal(t, Shared, block.Kind())
	assert.Equal(t, 4096, block.Len())
	assert.True(t, IsAligned(block.Bytes(), 64))

	data := block.Bytes()
	data[0], data[4095] = 1, 2
	assert.Equal(t, byte(2), block.Bytes()[4095])

	require.NoError(t, block.Close())
	assert.Nil(t, block.Bytes())
	require.NoError(t, block.Close())
}

func TestAllocShared_ZeroLength(t *testing.T) {
	block, err := AllocShared(0, DefaultAlignment)
	require.NoError(t, err)
	assert.Equal(t, 0, block.Len())
	assert.NoError(t, block.Close())
}

func BenchmarkAlloc(b *testing.B) {
	sizes := []int{64, 256, 1024, 4096}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Alloc(size, DefaultAlignment)
			}
		})
	}
}

func BenchmarkAllocUnsafe(b *testing.B) {
	sizes := []int{64, 256, 1024, 4096}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf, _ := AllocUnsafe(size, DefaultAlignment)
				Recycle(buf)
			}
		})
	}
}
