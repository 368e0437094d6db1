package roarguard

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/freeze"
	"github.com/hupe1980/roarguard/internal/resource"
)

// Executor runs serialization and file work on background goroutines.
//
// Before an operation is started, every bitmap it reads is frozen with a
// scoped hold, so the foreground can keep reading but any mutation fails
// with *FrozenStateError until the operation finished. The hold is released
// however the operation ends, including by panic, and before its Future
// completes.
type Executor struct {
	opts   options
	rc     *resource.Controller
	wg     sync.WaitGroup

	// mu orders Close against operations registering with wg.
	mu     sync.Mutex
	closed bool
}

// NewExecutor creates an executor.
func NewExecutor(optFns ...Option) *Executor {
	o := applyOptions(optFns)
	return &Executor{
		opts: o,
		rc:   resource.NewController(o.resources),
	}
}

var defaultExecutor = sync.OnceValue(func() *Executor { return NewExecutor() })

// DefaultExecutor returns the shared executor used by the package-level
// Async functions. It is never closed.
func DefaultExecutor() *Executor { return defaultExecutor() }

// Close stops accepting operations and waits for running ones to finish.
func (e *Executor) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

// begin registers an operation with Close. It reports false once the
// executor is closed; otherwise the caller must call e.wg.Done.
func (e *Executor) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	return true
}

// task is the per-operation state handed to the work function.
type task struct {
	ctx      context.Context
	rc       *resource.Controller
	reserved int64
	bytes    int64
}

// reserve accounts n bytes of buffer memory against the executor's limit.
func (t *task) reserve(n int64) error {
	if n <= 0 {
		return nil
	}
	if err := t.rc.AcquireMemory(t.ctx, n); err != nil {
		return err
	}
	t.reserved += n
	return nil
}

// submit freezes holds, then runs work on a new goroutine once a worker slot is free.
func submit[T any](e *Executor, op string, f codec.Format, holds []*freeze.Lock, work func(t *task) (T, error)) *Future[T] {
	if !e.begin() {
		return failedFuture[T](fmt.Errorf("%s: executor %w", op, ErrClosed))
	}

	tokens := make([]*freeze.Token, 0, len(holds))
	for _, l := range holds {
		tokens = append(tokens, l.Acquire())
	}

	fut := newFuture[T]()
	go func() {
		defer e.wg.Done()

		ctx, span := e.opts.tracer.Start(context.Background(), "roarguard."+op,
			trace.WithAttributes(attribute.String("roarguard.format", f.String())))
		t := &task{ctx: ctx, rc: e.rc}
		start := time.Now()

		var (
			val T
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: panic: %v", op, r)
			}
			e.rc.ReleaseMemory(t.reserved)
			for _, tok := range tokens {
				tok.Release()
			}
			e.finish(ctx, span, op, f, t.bytes, time.Since(start), err)
			fut.complete(val, err)
		}()

		if err = e.rc.AcquireBackground(ctx); err != nil {
			return
		}
		defer e.rc.ReleaseBackground()
		e.opts.metricsCollector.RecordAdmission(op, time.Since(start))

		val, err = work(t)
		err = translateError(err)
	}()
	return fut
}

func (e *Executor) finish(ctx context.Context, span trace.Span, op string, f codec.Format, bytes int64, d time.Duration, err error) {
	span.SetAttributes(attribute.Int64("roarguard.bytes", bytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	e.opts.metricsCollector.RecordOp(op, f.String(), bytes, d, err)
	e.opts.logger.LogOp(ctx, op, f.String(), bytes, d, err)
}

// SerializeAsync encodes b in the background. b is frozen until the result is ready.
func (e *Executor) SerializeAsync(b *Bitmap, f codec.Format) *Future[[]byte] {
	if b == nil {
		return failedFuture[[]byte](invalidArg("bitmap", "must not be nil"))
	}
	return submit(e, "serialize", f, []*freeze.Lock{b.holdLock()}, func(t *task) ([]byte, error) {
		n, err := ExactSize(b, f)
		if err != nil {
			return nil, err
		}
		if err := t.reserve(int64(n)); err != nil {
			return nil, err
		}
		buf, err := Serialize(b, f)
		t.bytes = int64(len(buf))
		return buf, err
	})
}

// DeserializeAsync decodes data in the background. data must not be
// modified until the result is ready.
func (e *Executor) DeserializeAsync(data []byte, f codec.Format) *Future[*Bitmap] {
	return submit(e, "deserialize", f, nil, func(t *task) (*Bitmap, error) {
		if err := t.reserve(int64(len(data))); err != nil {
			return nil, err
		}
		t.bytes = int64(len(data))
		return Deserialize(data, f)
	})
}

// DeserializeParallelAsync decodes several buffers concurrently, bounded by
// the executor's worker limit. The results keep the order of items. If any
// buffer fails, the first error is returned.
func (e *Executor) DeserializeParallelAsync(items [][]byte, f codec.Format) *Future[[]*Bitmap] {
	return submit(e, "deserialize parallel", f, nil, func(t *task) ([]*Bitmap, error) {
		var total int64
		for _, data := range items {
			total += int64(len(data))
		}
		if err := t.reserve(total); err != nil {
			return nil, err
		}
		t.bytes = total

		out := make([]*Bitmap, len(items))
		g := new(errgroup.Group)
		g.SetLimit(int(max(e.rc.MaxBackground(), 1)))
		for i, data := range items {
			g.Go(func() error {
				b, err := Deserialize(data, f)
				if err != nil {
					return fmt.Errorf("item %d: %w", i, err)
				}
				out[i] = b
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// WriteFileAsync writes b to path in the background and reports the number
// of bytes written. b is frozen until the file is in place.
func (e *Executor) WriteFileAsync(path string, b *Bitmap, f codec.Format) *Future[int64] {
	if b == nil {
		return failedFuture[int64](invalidArg("bitmap", "must not be nil"))
	}
	return submit(e, "write file", f, []*freeze.Lock{b.holdLock()}, func(t *task) (int64, error) {
		cw := &countingWriter{}
		err := writeFile(e.opts.fileSystem, path, b, f, func(w io.Writer) io.Writer {
			cw.w = resource.NewRateLimitedWriter(t.ctx, w, e.rc)
			return cw
		})
		t.bytes = cw.n
		return cw.n, err
	})
}

// ReadFileAsync reads and decodes path in the background.
func (e *Executor) ReadFileAsync(path string, f codec.Format) *Future[*Bitmap] {
	return submit(e, "read file", f, nil, func(t *task) (*Bitmap, error) {
		if info, err := e.opts.fileSystem.Stat(path); err == nil {
			if err := t.reserve(info.Size()); err != nil {
				return nil, err
			}
			t.bytes = info.Size()
		}
		return readFile(e.opts.fileSystem, path, f, func(r io.Reader) io.Reader {
			return resource.NewRateLimitedReader(t.ctx, r, e.rc)
		})
	})
}

// SerializeAsync encodes b on the default executor.
func SerializeAsync(b *Bitmap, f codec.Format) *Future[[]byte] {
	return DefaultExecutor().SerializeAsync(b, f)
}

// DeserializeAsync decodes data on the default executor.
func DeserializeAsync(data []byte, f codec.Format) *Future[*Bitmap] {
	return DefaultExecutor().DeserializeAsync(data, f)
}

// DeserializeParallelAsync decodes several buffers on the default executor.
func DeserializeParallelAsync(items [][]byte, f codec.Format) *Future[[]*Bitmap] {
	return DefaultExecutor().DeserializeParallelAsync(items, f)
}

// WriteFileAsync writes b to path on the default executor.
func WriteFileAsync(path string, b *Bitmap, f codec.Format) *Future[int64] {
	return DefaultExecutor().WriteFileAsync(path, b, f)
}

// ReadFileAsync reads path on the default executor.
func ReadFileAsync(path string, f codec.Format) *Future[*Bitmap] {
	return DefaultExecutor().ReadFileAsync(path, f)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
