// Package resource admits offloaded operations.
//
// A Controller governs three resources:
//
//   - Workers: a weighted semaphore caps concurrently running operations.
//   - Memory: encode and decode buffers are reserved before allocation.
//   - IO: a token bucket throttles offloaded file reads and writes.
//
// Memory can be reserved blocking (AcquireMemory) or fail-fast
// (TryAcquireMemory). A request larger than the configured limit never
// blocks; it fails with ErrMemoryLimitExceeded.
//
//	rc := resource.NewController(resource.Config{
//	    MaxBackgroundWorkers: 4,
//	    MemoryLimitBytes:     256 << 20,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// All methods are safe for concurrent use and nil-safe: a nil Controller
// admits everything.
package resource
