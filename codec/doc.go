// Package codec maps serialization format tags to exact-size, encode and
// decode functions over a roaring bitmap.
//
// Every format satisfies
//
//	len(Encode(rb, f)) == ExactSize(rb, f)
//
// so callers can preallocate an output region and encode in place with
// EncodeTo. Text formats are encode-only; Decode and View reject them.
//
// The two unsafe_frozen_* formats are the zero-copy layouts consumed by View:
// the returned bitmap reads directly from the caller's bytes, which must stay
// valid and unmodified for as long as the bitmap is in use.
package codec
