// Package bolt provides a blobstore.Store kept in a single bbolt database file.
//
// Each blob is stored as a msgpack record holding the payload and the time it
// was written. It suits many small bitmaps that should live in one file
// instead of one file each.
//
//	store, err := bolt.Open("bitmaps.db", bolt.Options{})
//	defer store.Close()
//	err = roarguard.SaveBlob(ctx, store, "users/active", bm, codec.Portable)
package bolt
