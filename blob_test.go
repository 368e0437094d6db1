package roarguard

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roarguard/blobstore"
	"github.com/hupe1980/roarguard/blobstore/bolt"
	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/frame"
)

func TestBlob_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "blobs.db"), bolt.Options{NoSync: true})
	require.NoError(t, err)
	defer db.Close()

	stores := map[string]blobstore.Store{
		"memory":  blobstore.NewMemoryStore(),
		"local":   blobstore.NewLocalStore(t.TempDir()),
		"caching": blobstore.NewCachingStore(blobstore.NewMemoryStore(), 1<<20),
		"bolt":    db,
	}
	compressions := []Compression{CompressionNone, CompressionLZ4, CompressionZSTD}

	for storeName, store := range stores {
		for _, c := range compressions {
			ex := NewExecutor(WithCompression(c))
			for name, b := range sampleBitmaps() {
				for _, f := range binaryFormats() {
					blob := fmt.Sprintf("%s/%s/%s", c, name, f)
					require.NoError(t, ex.SaveBlob(ctx, store, blob, b, f), storeName)
					assert.False(t, b.IsFrozen())

					got, err := ex.LoadBlob(ctx, store, blob)
					require.NoError(t, err, "%s %s", storeName, blob)
					assert.True(t, got.Equals(b), "%s %s", storeName, blob)
				}
			}
			require.NoError(t, ex.Close())
		}
	}
}

func TestSaveBlob_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	assert.ErrorIs(t, SaveBlob(ctx, store, "a", New(), codec.CSV), ErrInvalidArgument)
	assert.ErrorIs(t, SaveBlob(ctx, store, "a", New(), codec.Format(0)), ErrInvalidArgument)
	assert.ErrorIs(t, SaveBlob(ctx, store, "a", nil, codec.Portable), ErrInvalidArgument)
	assert.ErrorIs(t, SaveBlob(ctx, nil, "a", New(), codec.Portable), ErrInvalidArgument)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadBlob_Missing(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]blobstore.Store{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	} {
		_, err := LoadBlob(ctx, store, "missing")
		var ioe *IOError
		require.ErrorAs(t, err, &ioe, name)
		assert.Equal(t, "ENOENT", ioe.Code, name)
	}
}

func TestLoadBlob_Corrupt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, SaveBlob(ctx, store, "a", New(Values(1, 2, 3)), codec.Portable))

	data, err := store.Get(ctx, "a")
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, store.Put(ctx, "a", data))

	_, err = LoadBlob(ctx, store, "a")
	assert.ErrorIs(t, err, ErrDeserialization)

	require.NoError(t, store.Put(ctx, "raw", []byte("plain bytes, no frame")))
	_, err = LoadBlob(ctx, store, "raw")
	assert.ErrorIs(t, err, ErrDeserialization)
}

func TestViewBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	src := New(Values(5, 7, 1000000), Range(1<<20, 1<<20+10000))

	for _, f := range []codec.Format{codec.FrozenCRoaring, codec.FrozenPortable} {
		require.NoError(t, SaveBlob(ctx, store, f.String(), src, f))

		v, err := ViewBlob(ctx, store, f.String())
		require.NoError(t, err, f.String())
		assert.Equal(t, Mapped, v.Ownership())
		assert.True(t, v.IsFrozen())
		assert.True(t, v.Equals(src))
		assert.ErrorIs(t, v.Add(1), ErrFrozen)

		c := v.Clone()
		require.NoError(t, c.Add(1))
		require.NoError(t, v.Close())
		assert.True(t, c.Contains(5))
	}
}

func TestViewBlob_Rejects(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	dense := New(Range(0, 200000))

	require.NoError(t, SaveBlob(ctx, store, "portable", dense, codec.Portable))
	_, err := ViewBlob(ctx, store, "portable")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ex := NewExecutor(WithCompression(CompressionZSTD))
	defer ex.Close()
	// Alternating bits fill bitmap containers that zstd shrinks to almost nothing.
	sparse, err := FromRange(0, 1<<20, 2)
	require.NoError(t, err)
	require.NoError(t, ex.SaveBlob(ctx, store, "compressed", sparse, codec.FrozenCRoaring))
	stored, err := store.Get(ctx, "compressed")
	require.NoError(t, err)
	h, err := frame.ParseHeader(stored)
	require.NoError(t, err)
	require.Equal(t, frame.CompressionZSTD, h.Compression)

	_, err = ViewBlob(ctx, store, "compressed")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ViewBlob(ctx, store, "missing")
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "ENOENT", ioe.Code)

	caching := blobstore.NewCachingStore(blobstore.NewMemoryStore(), 1<<10)
	_, err = ViewBlob(ctx, caching, "any")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSaveBlobs(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	blobs := make(map[string]*Bitmap)
	for i := range uint32(16) {
		blobs[fmt.Sprintf("set/%02d", i)] = New(Range(uint64(i)*1000, uint64(i)*1000+uint64(i)+1))
	}
	require.NoError(t, SaveBlobs(ctx, store, blobs, codec.CRoaring))

	names, err := store.List(ctx, "set/")
	require.NoError(t, err)
	assert.Len(t, names, 16)

	for name, want := range blobs {
		got, err := LoadBlob(ctx, store, name)
		require.NoError(t, err)
		assert.True(t, got.Equals(want), name)
		assert.False(t, want.IsFrozen())
	}
}
