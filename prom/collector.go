package prom

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/roarguard"
)

// Options configures NewCollector.
type Options struct {
	// Namespace prefixes every metric name. Defaults to "roarguard".
	Namespace string
	// Registerer receives the metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// DurationBuckets are the histogram buckets for durations in seconds.
	DurationBuckets []float64
	// SizeBuckets are the histogram buckets for moved bytes.
	SizeBuckets []float64
}

var (
	defaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	defaultSizeBuckets     = prometheus.ExponentialBuckets(256, 4, 10) // 256 B .. 64 MiB
)

// Collector implements roarguard.MetricsCollector with Prometheus metrics.
type Collector struct {
	ops       *prometheus.CounterVec
	errors    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	bytes     *prometheus.HistogramVec
	admission *prometheus.HistogramVec
}

var _ roarguard.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics and registers them.
func NewCollector(opts Options) (*Collector, error) {
	if opts.Namespace == "" {
		opts.Namespace = "roarguard"
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.DurationBuckets == nil {
		opts.DurationBuckets = defaultDurationBuckets
	}
	if opts.SizeBuckets == nil {
		opts.SizeBuckets = defaultSizeBuckets
	}

	c := &Collector{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "operations_total",
			Help:      "Offloaded operations by operation and format.",
		}, []string{"op", "format"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "operation_errors_total",
			Help:      "Failed offloaded operations by operation and format.",
		}, []string{"op", "format"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of offloaded operations, queueing included.",
			Buckets:   opts.DurationBuckets,
		}, []string{"op"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "operation_bytes",
			Help:      "Bytes encoded, decoded or written per operation.",
			Buckets:   opts.SizeBuckets,
		}, []string{"op"}),
		admission: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "admission_wait_seconds",
			Help:      "Time operations waited for a worker slot.",
			Buckets:   opts.DurationBuckets,
		}, []string{"op"}),
	}

	for _, m := range c.collectors() {
		if err := opts.Registerer.Register(m); err != nil {
			return nil, fmt.Errorf("prom: register: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.ops, c.errors, c.duration, c.bytes, c.admission}
}

// Unregister removes the metrics from r.
func (c *Collector) Unregister(r prometheus.Registerer) {
	for _, m := range c.collectors() {
		r.Unregister(m)
	}
}

// RecordOp implements roarguard.MetricsCollector.
func (c *Collector) RecordOp(op, format string, bytes int64, d time.Duration, err error) {
	c.ops.WithLabelValues(op, format).Inc()
	if err != nil {
		c.errors.WithLabelValues(op, format).Inc()
	}
	c.duration.WithLabelValues(op).Observe(d.Seconds())
	if bytes > 0 {
		c.bytes.WithLabelValues(op).Observe(float64(bytes))
	}
}

// RecordAdmission implements roarguard.MetricsCollector.
func (c *Collector) RecordAdmission(op string, wait time.Duration) {
	c.admission.WithLabelValues(op).Observe(wait.Seconds())
}
