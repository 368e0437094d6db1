// Package roarguard is a safety and lifecycle layer over Roaring bitmaps.
//
// A Bitmap wraps a compressed 32-bit integer set and guards every mutation
// with a freeze lock and a version counter, so engine memory can be handed to
// background goroutines, aliased from external bytes or iterated lazily
// without use-after-free or silent corruption.
//
// # Quick Start
//
//	b := roarguard.New(roarguard.Values(1, 2, 3), roarguard.Range(100, 200))
//	_ = b.Add(7)
//	fmt.Println(b.Cardinality(), b.Contains(150))
//
// # Freezing
//
// A frozen bitmap rejects every mutation with *FrozenStateError and keeps
// its content and version. Reads and derived objects stay legal:
//
//	b.Freeze()
//	err := b.Add(8)         // errors.Is(err, roarguard.ErrFrozen)
//	c := b.Clone()          // mutable copy
//	_ = b.Unfreeze()
//
// Offloaded operations hold a scoped freeze on every bitmap they read until
// their Future completes:
//
//	fut := roarguard.SerializeAsync(b, codec.Portable)
//	_ = b.Add(9)            // fails while the encode runs
//	data, err := fut.Wait(ctx)
//
// # Views
//
// View aliases frozen-format bytes without copying them. Views are frozen
// for good; Clone returns a mutable copy:
//
//	data, _ := roarguard.Serialize(b, codec.FrozenCRoaring)
//	v, _ := roarguard.View(data, codec.FrozenCRoaring)
//	defer v.Close()
//
// ViewFile and ViewBlob map files read-only and unmap them on Close.
//
// # Cursors
//
// A Cursor decodes values in buffered batches and fails with
// *IterationInvalidatedError once its bitmap is mutated:
//
//	cur, _ := b.Cursor()
//	for cur.Next() {
//	    fmt.Println(cur.Value())
//	}
//	if err := cur.Err(); err != nil { ... }
//
// # Serialization
//
// Every format reports its exact size up front (ExactSize) and can encode
// into a caller-supplied buffer (SerializeTo). Binary formats decode with
// Deserialize; text formats are encode-only.
//
// # Blob Hand-off
//
// SaveBlob and LoadBlob move serialized bitmaps through a blobstore.Store
// (memory, local files, S3, MinIO or bbolt) inside a checksummed frame with
// optional LZ4 or zstd compression.
package roarguard
