package roarguard

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/freeze"
	"github.com/hupe1980/roarguard/internal/fs"
)

// occupy takes the executor's only worker slot so submitted work queues.
func occupy(t *testing.T, ex *Executor) (release func()) {
	t.Helper()
	require.NoError(t, ex.rc.AcquireBackground(context.Background()))
	return ex.rc.ReleaseBackground
}

func TestExecutor_HoldsUntilDone(t *testing.T) {
	ex := NewExecutor(WithMaxBackgroundWorkers(1))
	defer ex.Close()

	b := New(Values(1, 2, 3))
	release := occupy(t, ex)

	fut := ex.SerializeAsync(b, codec.Portable)
	assert.True(t, b.IsFrozen())
	assert.Equal(t, 1, b.FrozenDepth())

	err := b.Add(4)
	var fse *FrozenStateError
	require.ErrorAs(t, err, &fse)
	assert.Equal(t, 1, fse.Depth)
	assert.Equal(t, uint64(0), b.Version())

	// Reads stay legal.
	assert.Equal(t, []uint32{1, 2, 3}, b.ToArray())
	assert.True(t, b.Clone().Equals(b))

	// Close is refused while the hold is outstanding.
	assert.ErrorIs(t, b.Close(), ErrFrozen)

	// Unfreeze only clears a permanent freeze.
	b.Freeze()
	assert.Equal(t, 2, b.FrozenDepth())
	require.NoError(t, b.Unfreeze())
	assert.True(t, b.IsFrozen())

	release()
	data, err := fut.Wait(context.Background())
	require.NoError(t, err)

	assert.False(t, b.IsFrozen())
	require.NoError(t, b.Add(4))

	got, err := Deserialize(data, codec.Portable)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, got.ToArray())
}

func TestExecutor_ReadOnlyHoldsSource(t *testing.T) {
	ex := NewExecutor(WithMaxBackgroundWorkers(1))
	defer ex.Close()

	b := New(Values(1))
	release := occupy(t, ex)

	fut := ex.WriteFileAsync(filepath.Join(t.TempDir(), "ro.bin"), b.ReadOnly(), codec.Portable)
	assert.True(t, b.IsFrozen())
	assert.ErrorIs(t, b.Add(2), ErrFrozen)

	release()
	_, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, b.IsFrozen())
}

func TestExecutor_ReleasesOnPanic(t *testing.T) {
	ex := NewExecutor()
	defer ex.Close()

	b := New(Values(1))
	fut := submit(ex, "explode", codec.Portable, []*freeze.Lock{b.holdLock()}, func(*task) (int, error) {
		panic("boom")
	})
	_, err := fut.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, b.IsFrozen())
}

func TestExecutor_MemoryLimit(t *testing.T) {
	ex := NewExecutor(WithMemoryLimit(16))
	defer ex.Close()

	b := New(Values(1, 2, 3))
	_, err := ex.SerializeAsync(b, codec.Portable).Wait(context.Background())
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.False(t, b.IsFrozen())

	_, err = ex.SerializeAsync(New(), codec.Portable).Wait(context.Background())
	assert.NoError(t, err)
}

func TestExecutor_Closed(t *testing.T) {
	ex := NewExecutor()
	require.NoError(t, ex.Close())

	b := New(Values(1))
	_, err := ex.SerializeAsync(b, codec.Portable).Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, b.IsFrozen())
}

func TestExecutor_CloseWhileSubmitting(t *testing.T) {
	ex := NewExecutor()
	b := New(Values(1, 2, 3))
	want, err := Serialize(b, codec.Portable)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		futs []*Future[[]byte]
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				fut := ex.SerializeAsync(b, codec.Portable)
				mu.Lock()
				futs = append(futs, fut)
				mu.Unlock()
			}
		}()
	}
	require.NoError(t, ex.Close())
	wg.Wait()

	for _, fut := range futs {
		data, err := fut.Wait(context.Background())
		if err != nil {
			assert.ErrorIs(t, err, ErrClosed)
			continue
		}
		assert.Equal(t, want, data)
	}
	assert.Equal(t, 0, b.FrozenDepth())
}

func TestExecutor_NilBitmap(t *testing.T) {
	_, err := SerializeAsync(nil, codec.Portable).Wait(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFuture_WaitBoundsOnlyTheWait(t *testing.T) {
	ex := NewExecutor(WithMaxBackgroundWorkers(1))
	defer ex.Close()

	b := New(Values(1))
	release := occupy(t, ex)
	fut := ex.SerializeAsync(b, codec.Portable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := fut.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, b.IsFrozen())

	release()
	<-fut.Done()
	data, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDeserializeAsync(t *testing.T) {
	data, err := Serialize(New(Values(7, 8)), codec.CRoaring)
	require.NoError(t, err)

	got, err := DeserializeAsync(data, codec.CRoaring).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8}, got.ToArray())

	_, err = DeserializeAsync([]byte{9}, codec.CRoaring).Wait(context.Background())
	assert.ErrorIs(t, err, ErrDeserialization)
}

func TestDeserializeParallelAsync(t *testing.T) {
	var items [][]byte
	for i := range uint32(8) {
		data, err := Serialize(New(Values(i, i+100)), codec.Portable)
		require.NoError(t, err)
		items = append(items, data)
	}

	got, err := DeserializeParallelAsync(items, codec.Portable).Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 8)
	for i, b := range got {
		assert.Equal(t, []uint32{uint32(i), uint32(i) + 100}, b.ToArray())
	}

	items[3] = []byte{1}
	_, err = DeserializeParallelAsync(items, codec.Portable).Wait(context.Background())
	assert.ErrorIs(t, err, ErrDeserialization)
	assert.Contains(t, err.Error(), "item 3")
}

func TestFileAsync_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "async.bin")
	b := New(Range(0, 50000))

	n, err := WriteFileAsync(path, b, codec.FrozenCRoaring).Wait(context.Background())
	require.NoError(t, err)
	size, err := ExactSize(b, codec.FrozenCRoaring)
	require.NoError(t, err)
	assert.Equal(t, int64(size), n)

	got, err := ReadFileAsync(path, codec.FrozenCRoaring).Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equals(b))
}

func TestFileAsync_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFileAsync(filepath.Join(dir, "missing"), codec.Portable).Wait(context.Background())
	var ioe *IOError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "ENOENT", ioe.Code)

	fsys := fs.NewFaultyFS(nil)
	fsys.AddRule("full", fs.Fault{FailAfterBytes: 0, Errno: syscall.ENOSPC})
	ex := NewExecutor(WithFileSystem(fsys))
	defer ex.Close()

	b := New(Values(1, 2, 3))
	_, err = ex.WriteFileAsync(filepath.Join(dir, "full.bin"), b, codec.Portable).Wait(context.Background())
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "ENOSPC", ioe.Code)
	assert.False(t, b.IsFrozen())

	_, statErr := os.Stat(filepath.Join(dir, "full.bin"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestExecutor_IOLimit(t *testing.T) {
	ex := NewExecutor(WithIOLimit(1 << 20))
	defer ex.Close()

	path := filepath.Join(t.TempDir(), "limited.bin")
	b := New(Range(0, 1000))
	_, err := ex.WriteFileAsync(path, b, codec.Uint32Array).Wait(context.Background())
	require.NoError(t, err)

	got, err := ex.ReadFileAsync(path, codec.Uint32Array).Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equals(b))
}

func TestExecutor_Observability(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	metrics := &BasicMetricsCollector{}
	var logs bytes.Buffer

	ex := NewExecutor(
		WithTracer(tp.Tracer("test")),
		WithMetricsCollector(metrics),
		WithLogger(NewLogger(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	defer ex.Close()

	_, err := ex.SerializeAsync(New(Values(1, 2, 3)), codec.JSONArray).Wait(context.Background())
	require.NoError(t, err)
	_, err = ex.DeserializeAsync([]byte{1}, codec.Portable).Wait(context.Background())
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "roarguard.serialize", spans[0].Name())
	assert.Equal(t, "roarguard.deserialize", spans[1].Name())
	assert.Len(t, spans[1].Events(), 1, "error recorded on the span")

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.OpCount)
	assert.Equal(t, int64(1), stats.OpErrors)
	assert.Equal(t, int64(2), stats.Admissions)
	assert.Equal(t, int64(len("[1,2,3]")), stats.Bytes)

	assert.Contains(t, logs.String(), `"msg":"operation completed"`)
	assert.Contains(t, logs.String(), `"msg":"operation failed"`)
	assert.Contains(t, logs.String(), `"format":"json_array"`)
}
