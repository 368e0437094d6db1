package roarguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/roarguard/blobstore"
	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/frame"
)

// SaveBlob serializes b in format f, frames it with a checksum and stores it
// under name. Payloads are compressed with the executor's compression when
// that pays off. b is frozen until the blob is stored.
//
// Text formats are rejected because they cannot be loaded back.
func (e *Executor) SaveBlob(ctx context.Context, store blobstore.Store, name string, b *Bitmap, f codec.Format) error {
	if b == nil {
		return invalidArg("bitmap", "must not be nil")
	}
	if store == nil {
		return invalidArg("store", "must not be nil")
	}
	if _, err := codec.Lookup(f); err != nil {
		return translateError(err)
	}
	if f.Text() {
		return invalidArg("format", fmt.Sprintf("%s blobs cannot be loaded back", f))
	}

	return e.observe(ctx, "save blob", &f, name, func(ctx context.Context) (int64, error) {
		tok := b.holdLock().Acquire()
		defer tok.Release()

		raw, err := Serialize(b, f)
		if err != nil {
			return 0, err
		}
		framed, _, err := frame.Encode(uint8(f), raw, e.opts.compression)
		if err != nil {
			return 0, err
		}
		if err := store.Put(ctx, name, framed); err != nil {
			return 0, storeError("put", name, err)
		}
		return int64(len(framed)), nil
	})
}

// SaveBlobs stores several bitmaps concurrently, bounded by the executor's
// worker limit. It stops at the first failure; blobs already stored stay.
func (e *Executor) SaveBlobs(ctx context.Context, store blobstore.Store, blobs map[string]*Bitmap, f codec.Format) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(max(e.rc.MaxBackground(), 1)))
	for name, b := range blobs {
		g.Go(func() error {
			return e.SaveBlob(gctx, store, name, b, f)
		})
	}
	return g.Wait()
}

// LoadBlob reads the blob stored under name, verifies its checksum and
// decodes it into a bitmap that owns its memory.
func (e *Executor) LoadBlob(ctx context.Context, store blobstore.Store, name string) (*Bitmap, error) {
	if store == nil {
		return nil, invalidArg("store", "must not be nil")
	}

	var out *Bitmap
	var f codec.Format
	err := e.observe(ctx, "load blob", &f, name, func(ctx context.Context) (int64, error) {
		data, err := store.Get(ctx, name)
		if err != nil {
			return 0, storeError("get", name, err)
		}
		h, raw, err := frame.Decode(data)
		if err != nil {
			return int64(len(data)), err
		}
		f = codec.Format(h.Format)
		out, err = Deserialize(raw, f)
		return int64(len(data)), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ViewBlob maps the blob stored under name and views it in place. Only
// uncompressed blobs in one of the frozen formats can be viewed. The whole
// payload is checksummed once before the view is returned.
//
// The view is frozen for good and holds the mapping until it is closed or
// garbage collected.
func ViewBlob(ctx context.Context, m blobstore.Mapper, name string) (*Bitmap, error) {
	if m == nil {
		return nil, invalidArg("store", "must not be nil")
	}
	mapping, err := m.Map(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotMappable) {
			return nil, &InvalidArgumentError{Arg: "store", Msg: err.Error(), cause: err}
		}
		return nil, storeError("map", name, err)
	}

	h, payload, err := frame.Payload(mapping.Bytes())
	if err != nil {
		_ = mapping.Close()
		return nil, translateError(err)
	}
	f := codec.Format(h.Format)
	switch {
	case h.Compression != frame.CompressionNone:
		_ = mapping.Close()
		return nil, invalidArg("name", fmt.Sprintf("blob %q is %s compressed", name, h.Compression))
	case !f.Frozen():
		_ = mapping.Close()
		return nil, invalidArg("name", fmt.Sprintf("blob %q holds %s, not a frozen format", name, f))
	}

	rb, err := codec.View(payload, f)
	if err != nil {
		_ = mapping.Close()
		return nil, translateError(err)
	}
	b := &Bitmap{h: mappedHandle(rb, payload, mapping)}
	b.lock.Seal()
	return b, nil
}

// SaveBlob stores b on the default executor.
func SaveBlob(ctx context.Context, store blobstore.Store, name string, b *Bitmap, f codec.Format) error {
	return DefaultExecutor().SaveBlob(ctx, store, name, b, f)
}

// SaveBlobs stores several bitmaps on the default executor.
func SaveBlobs(ctx context.Context, store blobstore.Store, blobs map[string]*Bitmap, f codec.Format) error {
	return DefaultExecutor().SaveBlobs(ctx, store, blobs, f)
}

// LoadBlob loads a blob on the default executor.
func LoadBlob(ctx context.Context, store blobstore.Store, name string) (*Bitmap, error) {
	return DefaultExecutor().LoadBlob(ctx, store, name)
}

// observe runs a synchronous store operation inside a span and reports it
// like an offloaded one. fn may fill in *f once it knows the format.
func (e *Executor) observe(ctx context.Context, op string, f *codec.Format, name string, fn func(ctx context.Context) (int64, error)) error {
	if !e.begin() {
		return fmt.Errorf("%s: executor %w", op, ErrClosed)
	}
	defer e.wg.Done()

	ctx, span := e.opts.tracer.Start(ctx, "roarguard."+op,
		trace.WithAttributes(attribute.String("roarguard.blob", name)))
	start := time.Now()
	n, err := fn(ctx)
	err = translateError(err)
	if f.Valid() {
		span.SetAttributes(attribute.String("roarguard.format", f.String()))
	}
	e.finish(ctx, span, op, *f, n, time.Since(start), err)
	return err
}

// storeError normalizes blob store failures. Missing blobs become an
// *IOError with code ENOENT whatever the backend reported.
func storeError(op, name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if ioe := asIOError(err); ioe != nil {
		if ioe.Path == "" {
			ioe.Path = name
		}
		if ioe.Syscall == "" {
			ioe.Syscall = op
		}
		return ioe
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		return &IOError{Message: "no such blob", Code: "ENOENT", Syscall: op, Path: name, cause: err}
	}
	return fmt.Errorf("%s blob %q: %w", op, name, err)
}
