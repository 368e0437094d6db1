package roarguard

import (
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hupe1980/roarguard/internal/frame"
	"github.com/hupe1980/roarguard/internal/fs"
	"github.com/hupe1980/roarguard/internal/resource"
)

// Compression is the algorithm applied to blob payloads.
type Compression = frame.Compression

const (
	// CompressionNone stores blob payloads as is. Required for ViewBlob.
	CompressionNone = frame.CompressionNone
	// CompressionLZ4 favours speed.
	CompressionLZ4 = frame.CompressionLZ4
	// CompressionZSTD favours ratio.
	CompressionZSTD = frame.CompressionZSTD
)

// ParseCompression resolves a compression name ("none", "lz4", "zstd").
func ParseCompression(s string) (Compression, error) {
	c, err := frame.ParseCompression(s)
	if err != nil {
		return 0, &InvalidArgumentError{Arg: "compression", Msg: err.Error(), cause: err}
	}
	return c, nil
}

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	tracer           trace.Tracer
	resources        resource.Config
	fileSystem       fs.FileSystem
	compression      Compression
}

// Option configures an Executor.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for offloaded operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &roarguard.BasicMetricsCollector{}
//	ex := roarguard.NewExecutor(roarguard.WithMetricsCollector(metrics))
//	// ... offload work ...
//	stats := metrics.GetStats()
//	fmt.Printf("ops: %d, avg latency: %dns\n", stats.OpCount, stats.OpAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for offloaded operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := roarguard.NewJSONLogger(slog.LevelDebug)
//	ex := roarguard.NewExecutor(roarguard.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithTracer makes offloaded operations open a span each. The default tracer
// records nothing.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMaxBackgroundWorkers caps how many offloaded operations run at once.
// Further operations queue for a slot. Defaults to GOMAXPROCS.
func WithMaxBackgroundWorkers(n int) Option {
	return func(o *options) {
		o.resources.MaxBackgroundWorkers = int64(n)
	}
}

// WithMemoryLimit caps the encode and decode buffers offloaded operations
// hold at the same time. An operation that needs more than the whole limit
// fails with ErrResourceExhausted. 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.MemoryLimitBytes = bytes
	}
}

// WithIOLimit throttles offloaded file reads and writes to bytes per second.
// 0 means unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithFileSystem sets the file system offloaded file operations go through.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fileSystem = fsys
		}
	}
}

// WithCompression sets the payload compression used by SaveBlob.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		tracer:           noop.NewTracerProvider().Tracer("roarguard"),
		resources: resource.Config{
			MaxBackgroundWorkers: int64(runtime.GOMAXPROCS(0)),
		},
		fileSystem:  fs.Default,
		compression: CompressionNone,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
