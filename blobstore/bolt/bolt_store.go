package bolt

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/hupe1980/roarguard/blobstore"
)

var bucketName = []byte("blobs")

// Options configures Open.
type Options struct {
	// Timeout bounds waiting for the file lock. Defaults to 10s.
	Timeout time.Duration
	// NoSync skips fsync after each commit. Only for tests.
	NoSync bool
}

// record is the stored value of one blob.
type record struct {
	Data      []byte `msgpack:"d"`
	CreatedAt int64  `msgpack:"t"`
}

// Store implements blobstore.Store on top of bbolt.
type Store struct {
	db *bbolt.DB
}

var _ blobstore.Store = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string, opt Options) (*Store, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = 10 * time.Second
	}
	bopt.NoSync = opt.NoSync
	bopt.FreelistType = bbolt.FreelistMapType

	db, err := bbolt.Open(path, 0o644, &bopt)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the blob's payload.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	rec, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

// ModTime returns when the blob was written.
func (s *Store) ModTime(ctx context.Context, name string) (time.Time, error) {
	rec, err := s.get(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, rec.CreatedAt), nil
}

func (s *Store) get(ctx context.Context, name string) (record, error) {
	var rec record
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(name))
		if raw == nil {
			return blobstore.ErrNotFound
		}
		if err := msgpack.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("bolt: decode %q: %w", name, err)
		}
		// raw is only valid inside the transaction.
		rec.Data = slices.Clone(rec.Data)
		return nil
	})
	return rec, err
}

// Put stores a blob in its own transaction.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := msgpack.Marshal(&record{Data: data, CreatedAt: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("bolt: encode %q: %w", name, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(name), raw)
	})
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(name))
	})
}

// List returns names with the given prefix in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	return names, err
}
