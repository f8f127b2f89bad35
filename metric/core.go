package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not domain-specific)
type Metrics struct {
	// Service metrics
	ServiceStatus      *prometheus.GaugeVec
	MessagesReceived   *prometheus.CounterVec
	MessagesProcessed  *prometheus.CounterVec
	MessagesPublished  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	// Topic metrics
	TopicDepth         *prometheus.GaugeVec
	TopicOverflowTotal *prometheus.CounterVec

	// Zero-copy bypass metrics
	ZeroCopyBytesTotal *prometheus.CounterVec
	ZeroCopyFallbacks  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Service metrics
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gauss",
				Subsystem: "pipeline",
				Name:      "status",
				Help:      "Pipeline status (0=stopped, 1=loading, 2=resolved, 3=running, 4=draining)",
			},
			[]string{"pipeline"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of records read by a source processor",
			},
			[]string{"processor", "topic"},
		),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Total number of records handled by a transform processor",
			},
			[]string{"processor", "status"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "messages",
				Name:      "published_total",
				Help:      "Total number of records written to a topic",
			},
			[]string{"processor", "topic"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gauss",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Processor invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"processor", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors, labeled by classification",
			},
			[]string{"component", "class"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gauss",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		TopicDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gauss",
				Subsystem: "topic",
				Name:      "depth",
				Help:      "Number of records currently retained by a topic's storage",
			},
			[]string{"topic"},
		),

		TopicOverflowTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "topic",
				Name:      "overflow_total",
				Help:      "Total number of writes that hit a full topic's backpressure policy",
			},
			[]string{"topic", "policy"},
		),

		ZeroCopyBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "zerocopy",
				Name:      "bytes_total",
				Help:      "Total bytes moved through a zero-copy bypass primitive",
			},
			[]string{"primitive"},
		),

		ZeroCopyFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gauss",
				Subsystem: "zerocopy",
				Name:      "fallbacks_total",
				Help:      "Total number of transfers that fell back to a userspace copy after bypass resolution failed",
			},
		),
	}
}

// RecordServiceStatus updates the pipeline status metric.
func (c *Metrics) RecordServiceStatus(pipeline string, status int) {
	c.ServiceStatus.WithLabelValues(pipeline).Set(float64(status))
}

// RecordMessageReceived increments a source processor's read counter.
func (c *Metrics) RecordMessageReceived(processor, topic string) {
	c.MessagesReceived.WithLabelValues(processor, topic).Inc()
}

// RecordMessageProcessed increments a transform processor's handled counter.
func (c *Metrics) RecordMessageProcessed(processor, status string) {
	c.MessagesProcessed.WithLabelValues(processor, status).Inc()
}

// RecordMessagePublished increments a sink/transform's write counter.
func (c *Metrics) RecordMessagePublished(processor, topic string) {
	c.MessagesPublished.WithLabelValues(processor, topic).Inc()
}

// RecordProcessingDuration records processor invocation latency.
func (c *Metrics) RecordProcessingDuration(processor, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(processor, operation).Observe(duration.Seconds())
}

// RecordError increments the classified error counter.
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordHealthStatus updates a component's health check status.
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordTopicDepth updates a topic's retained record count.
func (c *Metrics) RecordTopicDepth(topic string, depth int) {
	c.TopicDepth.WithLabelValues(topic).Set(float64(depth))
}

// RecordTopicOverflow increments a topic's backpressure counter.
func (c *Metrics) RecordTopicOverflow(topic, policy string) {
	c.TopicOverflowTotal.WithLabelValues(topic, policy).Inc()
}

// RecordZeroCopyBytes adds to the byte counter for a bypass primitive.
func (c *Metrics) RecordZeroCopyBytes(primitive string, n int64) {
	c.ZeroCopyBytesTotal.WithLabelValues(primitive).Add(float64(n))
}

// RecordZeroCopyFallback increments the bypass-unavailable fallback counter.
func (c *Metrics) RecordZeroCopyFallback() {
	c.ZeroCopyFallbacks.Inc()
}
