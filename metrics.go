package roarguard

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics
// of offloaded operations. Implement this interface to integrate with
// monitoring systems; package prom ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordOp is called when an offloaded operation finishes.
	// op names the operation (e.g. "serialize"), format is the codec format,
	// bytes the encoded size moved, err is nil if successful.
	RecordOp(op, format string, bytes int64, duration time.Duration, err error)

	// RecordAdmission is called when an operation got a worker slot.
	// wait is the time it spent queued behind other operations.
	RecordAdmission(op string, wait time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOp(string, string, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordAdmission(string, time.Duration)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpCount        atomic.Int64
	OpErrors       atomic.Int64
	OpTotalNanos   atomic.Int64
	Bytes          atomic.Int64
	AdmissionCount atomic.Int64
	WaitTotalNanos atomic.Int64
}

// RecordOp implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOp(_, _ string, bytes int64, duration time.Duration, err error) {
	b.OpCount.Add(1)
	b.OpTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OpErrors.Add(1)
		return
	}
	b.Bytes.Add(bytes)
}

// RecordAdmission implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdmission(_ string, wait time.Duration) {
	b.AdmissionCount.Add(1)
	b.WaitTotalNanos.Add(wait.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpCount:      b.OpCount.Load(),
		OpErrors:     b.OpErrors.Load(),
		OpAvgNanos:   avg(b.OpTotalNanos.Load(), b.OpCount.Load()),
		Bytes:        b.Bytes.Load(),
		Admissions:   b.AdmissionCount.Load(),
		WaitAvgNanos: avg(b.WaitTotalNanos.Load(), b.AdmissionCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpCount      int64
	OpErrors     int64
	OpAvgNanos   int64
	Bytes        int64
	Admissions   int64
	WaitAvgNanos int64
}
